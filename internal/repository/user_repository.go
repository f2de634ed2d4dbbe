package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/query"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateID is returned when an insert collides with an existing id.
	ErrDuplicateID = errors.New("user id already exists")
)

const pgUniqueViolation = "23505"

// UserRepository defines persistence access for directory users.
type UserRepository interface {
	ListPage(ctx context.Context, req query.PageRequest) (query.PageResult, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// ListPage runs the count and the data query inside one read-only snapshot
// so the total always agrees with the rows.
func (r *userRepository) ListPage(ctx context.Context, req query.PageRequest) (query.PageResult, error) {
	plan := query.Compose(req, query.Postgres)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return query.PageResult{}, fmt.Errorf("begin page tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var total int64
	if err := tx.QueryRow(ctx, plan.Count.SQL, plan.Count.Args...).Scan(&total); err != nil {
		return query.PageResult{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := tx.Query(ctx, plan.Data.SQL, plan.Data.Args...)
	if err != nil {
		return query.PageResult{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return query.PageResult{}, fmt.Errorf("scan users: %w", err)
	}

	return query.PageResult{Rows: users, Total: total, Page: plan.Request.Page, PageSize: plan.Request.PageSize}, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const stmt = `SELECT id, name, email FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, stmt, id).Scan(&user.ID, &user.Name, &user.Email); err != nil {
		return nil, pgError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const stmt = `INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, stmt, user.ID, user.Name, user.Email); err != nil {
		return pgError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const stmt = `
        UPDATE users SET name=$1, email=$2
        WHERE id=$3
        RETURNING id, name, email`

	if err := r.pool.QueryRow(ctx, stmt, user.Name, user.Email, user.ID).
		Scan(&user.ID, &user.Name, &user.Email); err != nil {
		return pgError(err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	const stmt = `DELETE FROM users WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, stmt, id)
	if err != nil {
		return pgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateID
	}
	return err
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
