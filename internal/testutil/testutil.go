// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/config"
	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/persistence"
	"github.com/spec-kit/user-directory/internal/query"
	"github.com/spec-kit/user-directory/internal/repository"
)

// NewTestDB creates an in-memory SQLite database with the users schema applied.
func NewTestDB(t *testing.T) *persistence.SQLite {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := persistence.RunMigrations(ctx, db, zap.NewNop()); err != nil {
		db.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// NewTestRepository returns a SQLite-backed repository over a fresh database.
func NewTestRepository(t *testing.T) repository.UserRepository {
	t.Helper()
	return repository.NewSQLiteUserRepository(NewTestDB(t).DB)
}

// SampleUsers is a fixed data set with mixed-case names and shared substrings.
func SampleUsers() []domain.User {
	return []domain.User{
		{ID: 1, Name: "Alice Walker", Email: "alice@example.com"},
		{ID: 2, Name: "bob stone", Email: "bob@example.org"},
		{ID: 3, Name: "Carol Alvarez", Email: "carol@sample.net"},
		{ID: 4, Name: "Dave Hall", Email: "dave@example.com"},
		{ID: 5, Name: "Eve Adams", Email: "eve@sample.net"},
		{ID: 6, Name: "Frank Moore", Email: "frank@example.com"},
		{ID: 7, Name: "Grace Lee", Email: "grace@example.org"},
		{ID: 8, Name: "alice smith", Email: "asmith@sample.net"},
		{ID: 9, Name: "Heidi Klum", Email: "heidi_k@example.com"},
		{ID: 10, Name: "Ivan 100% Real", Email: "ivan@example.com"},
		{ID: 11, Name: "Judy Alice", Email: "judy@example.org"},
	}
}

// Seed inserts users through the repository.
func Seed(t *testing.T, repo repository.UserRepository, users []domain.User) {
	t.Helper()
	for i := range users {
		u := users[i]
		if err := repo.Create(context.Background(), &u); err != nil {
			t.Fatalf("seed user %d: %v", u.ID, err)
		}
	}
}

// FailingRepository fails every call with Err.
type FailingRepository struct {
	Err error
}

// NewFailingRepository returns a repository whose every call fails.
func NewFailingRepository() *FailingRepository {
	return &FailingRepository{Err: errors.New("database is locked")}
}

func (r *FailingRepository) ListPage(context.Context, query.PageRequest) (query.PageResult, error) {
	return query.PageResult{}, r.Err
}

func (r *FailingRepository) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, r.Err
}

func (r *FailingRepository) Create(context.Context, *domain.User) error { return r.Err }

func (r *FailingRepository) Update(context.Context, *domain.User) error { return r.Err }

func (r *FailingRepository) Delete(context.Context, int64) error { return r.Err }
