package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/query"
)

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository returns an implementation backed by database/sql
// and the modernc sqlite driver.
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) ListPage(ctx context.Context, req query.PageRequest) (query.PageResult, error) {
	plan := query.Compose(req, query.SQLite)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return query.PageResult{}, fmt.Errorf("begin page tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	if err := tx.QueryRowContext(ctx, plan.Count.SQL, plan.Count.Args...).Scan(&total); err != nil {
		return query.PageResult{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := tx.QueryContext(ctx, plan.Data.SQL, plan.Data.Args...)
	if err != nil {
		return query.PageResult{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return query.PageResult{}, fmt.Errorf("scan users: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return query.PageResult{}, fmt.Errorf("scan users: %w", err)
	}

	return query.PageResult{Rows: users, Total: total, Page: plan.Request.Page, PageSize: plan.Request.PageSize}, nil
}

func (r *sqliteUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const stmt = `SELECT id, name, email FROM users WHERE id=?`

	var user domain.User
	if err := r.db.QueryRowContext(ctx, stmt, id).Scan(&user.ID, &user.Name, &user.Email); err != nil {
		return nil, sqliteError(err)
	}
	return &user, nil
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	const stmt = `INSERT INTO users (id, name, email) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, stmt, user.ID, user.Name, user.Email); err != nil {
		return sqliteError(err)
	}
	return nil
}

func (r *sqliteUserRepository) Update(ctx context.Context, user *domain.User) error {
	const stmt = `UPDATE users SET name=?, email=? WHERE id=? RETURNING id, name, email`

	if err := r.db.QueryRowContext(ctx, stmt, user.Name, user.Email, user.ID).
		Scan(&user.ID, &user.Name, &user.Email); err != nil {
		return sqliteError(err)
	}
	return nil
}

func (r *sqliteUserRepository) Delete(ctx context.Context, id int64) error {
	const stmt = `DELETE FROM users WHERE id=?`

	res, err := r.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return sqliteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// users has no constraint besides its key and NOT NULL columns that
		// Go strings always satisfy, so a bare constraint code is the key too.
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
			return ErrDuplicateID
		}
	}
	return err
}
