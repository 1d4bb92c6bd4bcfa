package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landregistry/internal/dispute/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

// Postgres persists disputes in the disputes table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const disputeColumns = `id, file_url, parcel_id, land_owner_citizen_id, raised_by_citizen_id, status, admin_approved, created_at, updated_at, deleted_at`

func (s *Postgres) Create(ctx context.Context, d *models.Dispute) error {
	q := tx.QuerierFor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.FileURL, d.ParcelID, d.LandOwnerCitizenID, d.RaisedByCitizenID,
		string(d.Status), nullIfEmpty(d.AdminApproved), d.CreatedAt, d.UpdatedAt, d.DeletedAt)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Dispute, error) {
	q := tx.QuerierFor(ctx, s.db)
	d, err := scanDispute(q.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find dispute: %w", err)
	}
	return d, nil
}

// Execute locks the row FOR UPDATE, runs validate, applies mutate, and writes
// the result back.
func (s *Postgres) Execute(ctx context.Context, id string, validate func(*models.Dispute) error, mutate func(*models.Dispute)) (*models.Dispute, error) {
	run := func(ctx context.Context) (*models.Dispute, error) {
		q := tx.QuerierFor(ctx, s.db)
		d, err := scanDispute(q.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("lock dispute: %w", err)
		}
		if err := validate(d); err != nil {
			return nil, err
		}
		mutate(d)

		_, err = q.ExecContext(ctx, `
			UPDATE disputes SET status = $2, admin_approved = $3, updated_at = $4, deleted_at = $5
			WHERE id = $1
		`, d.ID, string(d.Status), nullIfEmpty(d.AdminApproved), d.UpdatedAt, d.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("update dispute: %w", err)
		}
		return d, nil
	}

	if _, inTx := tx.From(ctx); inTx {
		return run(ctx)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	d, err := run(tx.WithTx(ctx, sqlTx))
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return d, nil
}

func (s *Postgres) ListByCitizen(ctx context.Context, citizenID string, page pagination.Page) ([]*models.Dispute, int, error) {
	return s.list(ctx, ` WHERE deleted_at IS NULL AND (land_owner_citizen_id = $1 OR raised_by_citizen_id = $1)`,
		[]any{citizenID}, page)
}

func (s *Postgres) ListAll(ctx context.Context, page pagination.Page) ([]*models.Dispute, int, error) {
	return s.list(ctx, ` WHERE deleted_at IS NULL`, nil, page)
}

func (s *Postgres) list(ctx context.Context, where string, args []any, page pagination.Page) ([]*models.Dispute, int, error) {
	q := tx.QuerierFor(ctx, s.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM disputes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count disputes: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := q.QueryContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes`+where+orderBy(page.Sort)+
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var out []*models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dispute: %w", err)
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func orderBy(order pagination.Sort) string {
	switch order {
	case pagination.SortOldest:
		return ` ORDER BY created_at ASC`
	case pagination.SortRecentlyUpdated:
		return ` ORDER BY updated_at DESC`
	default:
		return ` ORDER BY created_at DESC`
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispute(row rowScanner) (*models.Dispute, error) {
	var d models.Dispute
	var status string
	var adminApproved sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&d.ID, &d.FileURL, &d.ParcelID, &d.LandOwnerCitizenID, &d.RaisedByCitizenID,
		&status, &adminApproved, &d.CreatedAt, &d.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	d.Status = models.DisputeStatus(status)
	d.AdminApproved = adminApproved.String
	if deletedAt.Valid {
		d.DeletedAt = &deletedAt.Time
	}
	return &d, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
