package main

import (
	"context"
	"database/sql"
	"time"

	allocservice "organlink/internal/allocation/service"
	allocstore "organlink/internal/allocation/store"
	donorstore "organlink/internal/registry/store/donor"
	recipientstore "organlink/internal/registry/store/recipient"
	dErrors "organlink/pkg/domain-errors"
	txcontext "organlink/pkg/platform/tx"
)

const defaultAllocationTxTimeout = 5 * time.Second

// allocationPostgresTx runs one allocation transition inside a SQL
// transaction. The stores the transition mutates are rebuilt against the
// transaction, and the transaction additionally rides the context so the
// notification store's writes join it.
type allocationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newAllocationPostgresTx(db *sql.DB) *allocationPostgresTx {
	return &allocationPostgresTx{db: db}
}

func (t *allocationPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores allocservice.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultAllocationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stores := allocservice.Stores{
		Requests:   allocstore.NewPostgresStore(tx),
		Recipients: recipientstore.NewPostgresStore(tx),
		Donors:     donorstore.NewPostgresStore(tx),
	}
	if err := fn(txcontext.WithTx(ctx, tx), stores); err != nil {
		return err
	}

	return tx.Commit()
}
