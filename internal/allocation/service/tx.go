package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/requestcontext"
)

// numShards spreads transitions across locks so unrelated hospitals do not
// contend. Transitions touching the same hospital serialize on one shard.
const numShards = 64

// defaultTxTimeout bounds a single transition.
const defaultTxTimeout = 5 * time.Second

// shardedTx is the in-memory Tx used in development and tests. It serializes
// transitions per acting hospital; real atomicity comes from the conditional
// writes on the stores, which are individually atomic.
type shardedTx struct {
	shards  [numShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

// NewMemoryTx builds a Tx over in-memory stores.
func NewMemoryTx(stores Stores) Tx {
	return &shardedTx{stores: stores}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}

// selectShard keys on the acting hospital from context, defaulting to shard 0.
func (t *shardedTx) selectShard(ctx context.Context) int {
	hospital := requestcontext.HospitalID(ctx)
	if hospital.IsZero() {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(hospital.String()))
	return int(h.Sum32() % numShards)
}
