package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"landregistry/internal/land/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Postgres persists lands in the lands table. The ownership ledger lives in a
// jsonb column; it is only ever read and written under the same row lock as
// the status, so the two cannot drift apart.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const landColumns = `id, parcel_id, owner_id, address, gps_lat, gps_lon, size_sqm, usage_type, status, approved_by, ownership_history, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, l *models.Land) error {
	history, err := json.Marshal(l.OwnershipHistory)
	if err != nil {
		return fmt.Errorf("marshal ownership history: %w", err)
	}

	q := tx.QuerierFor(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO lands (`+landColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.ParcelID, l.OwnerID, l.Location.Address, l.Location.GPS.Lat, l.Location.GPS.Lon,
		l.SizeSqm, string(l.UsageType), string(l.Status), nullIfEmpty(l.ApprovedBy), history, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert land: %w", err)
	}
	return nil
}

func (s *Postgres) FindByParcelID(ctx context.Context, parcelID string) (*models.Land, error) {
	q := tx.QuerierFor(ctx, s.db)
	l, err := scanLand(q.QueryRowContext(ctx, `SELECT `+landColumns+` FROM lands WHERE parcel_id = $1`, parcelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find land: %w", err)
	}
	return l, nil
}

// Execute locks the row FOR UPDATE, runs validate, applies mutate, and writes
// the result back, ledger included.
func (s *Postgres) Execute(ctx context.Context, parcelID string, validate func(*models.Land) error, mutate func(*models.Land)) (*models.Land, error) {
	run := func(ctx context.Context) (*models.Land, error) {
		q := tx.QuerierFor(ctx, s.db)
		l, err := scanLand(q.QueryRowContext(ctx, `SELECT `+landColumns+` FROM lands WHERE parcel_id = $1 FOR UPDATE`, parcelID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("lock land: %w", err)
		}
		if err := validate(l); err != nil {
			return nil, err
		}
		mutate(l)

		history, err := json.Marshal(l.OwnershipHistory)
		if err != nil {
			return nil, fmt.Errorf("marshal ownership history: %w", err)
		}
		_, err = q.ExecContext(ctx, `
			UPDATE lands SET parcel_id = $2, owner_id = $3, address = $4, gps_lat = $5, gps_lon = $6,
				size_sqm = $7, usage_type = $8, status = $9, approved_by = $10, ownership_history = $11, updated_at = $12
			WHERE id = $1
		`, l.ID, l.ParcelID, l.OwnerID, l.Location.Address, l.Location.GPS.Lat, l.Location.GPS.Lon,
			l.SizeSqm, string(l.UsageType), string(l.Status), nullIfEmpty(l.ApprovedBy), history, l.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return nil, sentinel.ErrAlreadyUsed
			}
			return nil, fmt.Errorf("update land: %w", err)
		}
		return l, nil
	}

	if _, inTx := tx.From(ctx); inTx {
		return run(ctx)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	l, err := run(tx.WithTx(ctx, sqlTx))
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return l, nil
}

func (s *Postgres) List(ctx context.Context, query Query) ([]*models.Land, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if query.OwnerID != "" {
		args = append(args, query.OwnerID)
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if query.Status != "" {
		args = append(args, string(query.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	q := tx.QuerierFor(ctx, s.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM lands`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lands: %w", err)
	}

	args = append(args, query.Page.Limit, query.Page.Offset())
	rows, err := q.QueryContext(ctx,
		`SELECT `+landColumns+` FROM lands`+where+orderBy(query.Page.Sort)+
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list lands: %w", err)
	}
	defer rows.Close()

	var out []*models.Land
	for rows.Next() {
		l, err := scanLand(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan land: %w", err)
		}
		out = append(out, l)
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

func scanLand(row rowScanner) (*models.Land, error) {
	var l models.Land
	var usage, status string
	var approvedBy sql.NullString
	var history []byte
	err := row.Scan(&l.ID, &l.ParcelID, &l.OwnerID, &l.Location.Address, &l.Location.GPS.Lat, &l.Location.GPS.Lon,
		&l.SizeSqm, &usage, &status, &approvedBy, &history, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.UsageType = models.UsageType(usage)
	l.Status = models.LandStatus(status)
	l.ApprovedBy = approvedBy.String
	if err := json.Unmarshal(history, &l.OwnershipHistory); err != nil {
		return nil, fmt.Errorf("unmarshal ownership history: %w", err)
	}
	if l.OwnershipHistory == nil {
		l.OwnershipHistory = []models.OwnershipEntry{}
	}
	return &l, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
