package store

import (
	"context"
	"database/sql"
	"fmt"

	"landregistry/internal/audit"
	"landregistry/pkg/platform/tx"
)

// Postgres persists audit events in the audit_events table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	q := tx.QuerierFor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_events (action, actor_id, subject_id, parcel_id, detail, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, string(event.Action), event.ActorID, event.SubjectID, event.ParcelID, event.Detail, event.RequestID, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListByParcel(ctx context.Context, parcelID string) ([]audit.Event, error) {
	q := tx.QuerierFor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT action, actor_id, subject_id, parcel_id, detail, request_id, created_at
		FROM audit_events
		WHERE parcel_id = $1
		ORDER BY created_at ASC
	`, parcelID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var action string
		if err := rows.Scan(&action, &e.ActorID, &e.SubjectID, &e.ParcelID, &e.Detail, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
