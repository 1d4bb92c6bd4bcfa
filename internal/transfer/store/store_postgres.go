package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"landregistry/internal/transfer/models"
	"landregistry/pkg/pagination"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

// Postgres persists transfers in the transfers table. The bid book lives in
// a jsonb column and is only touched under the transfer's row lock.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const transferColumns = `id, parcel_id, status, seller_citizen_id, buyer_citizen_id, previous_land_status, bids, admin_approved, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, t *models.Transfer) error {
	bids, err := json.Marshal(t.Bids)
	if err != nil {
		return fmt.Errorf("marshal bids: %w", err)
	}

	q := tx.QuerierFor(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.ParcelID, string(t.Status), t.SellerCitizenID, nullIfEmpty(t.BuyerCitizenID),
		t.PreviousLandStatus, bids, nullIfEmpty(t.AdminApproved), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Transfer, error) {
	q := tx.QuerierFor(ctx, s.db)
	t, err := scanTransfer(q.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find transfer: %w", err)
	}
	return t, nil
}

// Execute locks the row FOR UPDATE, runs validate, applies mutate, and
// writes the result back, bid book included.
func (s *Postgres) Execute(ctx context.Context, id string, validate func(*models.Transfer) error, mutate func(*models.Transfer)) (*models.Transfer, error) {
	run := func(ctx context.Context) (*models.Transfer, error) {
		q := tx.QuerierFor(ctx, s.db)
		t, err := scanTransfer(q.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("lock transfer: %w", err)
		}
		if err := validate(t); err != nil {
			return nil, err
		}
		mutate(t)

		bids, err := json.Marshal(t.Bids)
		if err != nil {
			return nil, fmt.Errorf("marshal bids: %w", err)
		}
		_, err = q.ExecContext(ctx, `
			UPDATE transfers SET status = $2, buyer_citizen_id = $3, bids = $4, admin_approved = $5, updated_at = $6
			WHERE id = $1
		`, t.ID, string(t.Status), nullIfEmpty(t.BuyerCitizenID), bids, nullIfEmpty(t.AdminApproved), t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("update transfer: %w", err)
		}
		return t, nil
	}

	if _, inTx := tx.From(ctx); inTx {
		return run(ctx)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	t, err := run(tx.WithTx(ctx, sqlTx))
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return t, nil
}

func (s *Postgres) ListByCitizen(ctx context.Context, citizenID string, page pagination.Page) ([]*models.Transfer, int, error) {
	return s.list(ctx, ` WHERE seller_citizen_id = $1 OR buyer_citizen_id = $1`, []any{citizenID}, page)
}

func (s *Postgres) ListAwaitingApproval(ctx context.Context, page pagination.Page) ([]*models.Transfer, int, error) {
	return s.list(ctx, ` WHERE status = 'active' AND buyer_citizen_id IS NOT NULL`, nil, page)
}

func (s *Postgres) ListAll(ctx context.Context, page pagination.Page) ([]*models.Transfer, int, error) {
	return s.list(ctx, ``, nil, page)
}

func (s *Postgres) list(ctx context.Context, where string, args []any, page pagination.Page) ([]*models.Transfer, int, error) {
	q := tx.QuerierFor(ctx, s.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transfers: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := q.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers`+where+orderBy(page.Sort)+
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []*models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
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

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var t models.Transfer
	var status string
	var buyer, adminApproved sql.NullString
	var bids []byte
	err := row.Scan(&t.ID, &t.ParcelID, &status, &t.SellerCitizenID, &buyer,
		&t.PreviousLandStatus, &bids, &adminApproved, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TransferStatus(status)
	t.BuyerCitizenID = buyer.String
	t.AdminApproved = adminApproved.String
	if err := json.Unmarshal(bids, &t.Bids); err != nil {
		return nil, fmt.Errorf("unmarshal bids: %w", err)
	}
	if t.Bids == nil {
		t.Bids = []models.Bid{}
	}
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
