package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"landregistry/internal/identity/models"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Postgres persists users in the users table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `id, citizen_id, email, phone_number, name, role, password_hash, created_at, updated_at, deleted_at`

func (s *Postgres) CreateIfAvailable(ctx context.Context, u *models.User) error {
	q := tx.QuerierFor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.CitizenID, u.Email, u.PhoneNumber, u.Name, string(u.Role), u.PasswordHash, u.CreatedAt, u.UpdatedAt, u.DeletedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Postgres) FindByCitizenID(ctx context.Context, citizenID string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE citizen_id = $1`, citizenID)
}

func (s *Postgres) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	q := tx.QuerierFor(ctx, s.db)
	u, err := scanUser(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Execute locks the row FOR UPDATE, runs validate, applies mutate, and writes
// the result back. Callers wanting multi-record atomicity run it inside an
// ambient transaction.
func (s *Postgres) Execute(ctx context.Context, id string, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	run := func(ctx context.Context) (*models.User, error) {
		q := tx.QuerierFor(ctx, s.db)
		u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("lock user: %w", err)
		}
		if err := validate(u); err != nil {
			return nil, err
		}
		mutate(u)
		_, err = q.ExecContext(ctx, `
			UPDATE users SET email = $2, phone_number = $3, name = $4, updated_at = $5, deleted_at = $6
			WHERE id = $1
		`, u.ID, u.Email, u.PhoneNumber, u.Name, u.UpdatedAt, u.DeletedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return nil, sentinel.ErrAlreadyUsed
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
		return u, nil
	}

	if _, inTx := tx.From(ctx); inTx {
		return run(ctx)
	}

	// No ambient transaction: open one so the row lock has a lifetime.
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	u, err := run(tx.WithTx(ctx, sqlTx))
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return u, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.User, error) {
	q := tx.QuerierFor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	var deletedAt sql.NullTime
	err := row.Scan(&u.ID, &u.CitizenID, &u.Email, &u.PhoneNumber, &u.Name, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}
	return &u, nil
}
