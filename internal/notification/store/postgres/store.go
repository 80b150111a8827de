package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"organlink/internal/notification"
	id "organlink/pkg/domain"
	txcontext "organlink/pkg/platform/tx"
)

// Store persists notifications in PostgreSQL. Writes join an allocation
// transaction when one is carried in context, so an aborted transition never
// leaves a notification behind.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Insert(ctx context.Context, n *notification.Notification) error {
	const query = `
		INSERT INTO notifications (id, hospital_id, type, title, message, related_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		n.ID.String(),
		n.Hospital.String(),
		string(n.Type),
		n.Title,
		n.Message,
		n.RelatedID.String(),
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListByHospital(ctx context.Context, hospital id.HospitalID) ([]*notification.Notification, error) {
	const query = `
		SELECT id, hospital_id, type, title, message, related_id, read, created_at
		FROM notifications
		WHERE hospital_id = $1
		ORDER BY created_at DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, hospital.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var list []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var rawID, rawHospital, rawType, rawRelated string
		if err := rows.Scan(&rawID, &rawHospital, &rawType, &n.Title, &n.Message, &rawRelated, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.ID, err = id.ParseNotificationID(rawID); err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		if n.Hospital, err = id.ParseHospitalID(rawHospital); err != nil {
			return nil, fmt.Errorf("scan notification hospital: %w", err)
		}
		if n.RelatedID, err = id.ParseRequestID(rawRelated); err != nil {
			return nil, fmt.Errorf("scan notification related id: %w", err)
		}
		n.Type = notification.Type(rawType)
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (s *Store) MarkReadByRelated(ctx context.Context, hospital id.HospitalID, related id.RequestID) error {
	const query = `
		UPDATE notifications
		SET read = TRUE
		WHERE hospital_id = $1 AND related_id = $2 AND read = FALSE`

	if _, err := s.execer(ctx).ExecContext(ctx, query, hospital.String(), related.String()); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
