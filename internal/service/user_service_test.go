package service

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/cache"
	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/observability"
	"github.com/spec-kit/user-directory/internal/query"
	"github.com/spec-kit/user-directory/internal/repository"
	"github.com/spec-kit/user-directory/internal/testutil"
	apperrors "github.com/spec-kit/user-directory/pkg/util/errorutil"
)

type memoryCache struct {
	mu          sync.Mutex
	gen         int64
	pages       map[query.PageRequest]query.PageResult
	hits        int
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: map[query.PageRequest]query.PageResult{}}
}

func (c *memoryCache) Get(_ context.Context, req query.PageRequest) (query.PageResult, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.pages[req]
	if ok {
		c.hits++
	}
	return res, c.gen, ok
}

func (c *memoryCache) Set(_ context.Context, gen int64, req query.PageRequest, result query.PageResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.pages[req] = result
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = map[query.PageRequest]query.PageResult{}
	c.gen++
	c.invalidated++
	return nil
}

func newTestService(t *testing.T, pageCache PageCache) *UserService {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, pageCache, zap.NewNop()).RegisterHandlers()
	repo := testutil.NewTestRepository(t)
	testutil.Seed(t, repo, testutil.SampleUsers())
	return NewUserService(UserDependencies{
		UserRepo:   repo,
		Cache:      pageCache,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Limits:     query.Limits{DefaultPageSize: 6, MaxPageSize: 50},
	})
}

func int64Ptr(v int64) *int64 { return &v }

func TestUserService_ListUsers(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       query.PageRequest
		wantRows  int
		wantTotal int64
		wantPage  int
		wantSize  int
	}{
		{
			name:      "defaults applied",
			req:       query.PageRequest{},
			wantRows:  6,
			wantTotal: 11,
			wantPage:  1,
			wantSize:  6,
		},
		{
			name:      "second page partial",
			req:       query.PageRequest{Page: 2, PageSize: 6},
			wantRows:  5,
			wantTotal: 11,
			wantPage:  2,
			wantSize:  6,
		},
		{
			name:      "beyond last page is empty, not an error",
			req:       query.PageRequest{Page: 99, PageSize: 6},
			wantRows:  0,
			wantTotal: 11,
			wantPage:  99,
			wantSize:  6,
		},
		{
			name:      "page size capped by limits",
			req:       query.PageRequest{Page: 1, PageSize: 500},
			wantRows:  11,
			wantTotal: 11,
			wantPage:  1,
			wantSize:  50,
		},
		{
			name:      "filtered",
			req:       query.PageRequest{Page: 1, PageSize: 2, Search: "example.org"},
			wantRows:  2,
			wantTotal: 3,
			wantPage:  1,
			wantSize:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListUsers(ctx, tt.req)
			if err != nil {
				t.Fatalf("ListUsers() error = %v", err)
			}
			if len(got.Rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(got.Rows), tt.wantRows)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.Total, tt.wantTotal)
			}
			if got.Page != tt.wantPage || got.PageSize != tt.wantSize {
				t.Errorf("page/size = %d/%d, want %d/%d", got.Page, got.PageSize, tt.wantPage, tt.wantSize)
			}
		})
	}
}

func TestUserService_TotalIndependentOfPageAndSort(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	var totals []int64
	for _, sortField := range []string{"id", "name", "email", "bogus"} {
		for _, dir := range []query.Direction{query.Asc, query.Desc} {
			for p := 1; p <= 3; p++ {
				got, err := svc.ListUsers(ctx, query.PageRequest{Page: p, PageSize: 2, Search: "a", SortField: sortField, SortDirection: dir})
				if err != nil {
					t.Fatalf("ListUsers() error = %v", err)
				}
				totals = append(totals, got.Total)
			}
		}
	}
	for _, total := range totals {
		if total != totals[0] {
			t.Fatalf("totals differ across page/sort: %v", totals)
		}
	}
}

func TestUserService_UnknownSortFallsBackToID(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	byID, err := svc.ListUsers(ctx, query.PageRequest{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	hostile, err := svc.ListUsers(ctx, query.PageRequest{Page: 1, PageSize: 20, SortField: "name; DROP TABLE users", SortDirection: "sideways"})
	if err != nil {
		t.Fatalf("ListUsers(hostile sort) error = %v", err)
	}
	if !reflect.DeepEqual(byID, hostile) {
		t.Errorf("hostile sort result differs from default ordering")
	}

	// The table must still be intact.
	after, err := svc.ListUsers(ctx, query.PageRequest{Page: 1, PageSize: 20})
	if err != nil || after.Total != 11 {
		t.Errorf("table damaged: total = %d, err = %v", after.Total, err)
	}
}

func TestUserService_CreateUser(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		id       *int64
		input    UserInput
		wantCode string
	}{
		{name: "created", id: int64Ptr(42), input: UserInput{Name: "A", Email: "a@x.com"}},
		{name: "zero id is a valid id", id: int64Ptr(0), input: UserInput{Name: "Zero", Email: "z@x.com"}},
		{name: "missing id", id: nil, input: UserInput{Name: "A", Email: "a@x.com"}, wantCode: apperrors.CodeValidation},
		{name: "blank name", id: int64Ptr(43), input: UserInput{Name: "   ", Email: "a@x.com"}, wantCode: apperrors.CodeValidation},
		{name: "missing email", id: int64Ptr(44), input: UserInput{Name: "A"}, wantCode: apperrors.CodeValidation},
		{name: "duplicate id", id: int64Ptr(1), input: UserInput{Name: "A", Email: "a@x.com"}, wantCode: apperrors.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CreateUser(ctx, tt.id, tt.input)
			if tt.wantCode != "" {
				if !apperrors.Is(err, tt.wantCode) {
					t.Errorf("CreateUser() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() error = %v", err)
			}
			if got.ID != *tt.id || got.Name != tt.input.Name || got.Email != tt.input.Email {
				t.Errorf("CreateUser() = %+v", got)
			}
		})
	}
}

func TestUserService_RoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, int64Ptr(42), UserInput{Name: "A", Email: "a@x.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := svc.ListUsers(ctx, query.PageRequest{Page: 1, PageSize: 10, Search: "a@x"})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	want := []domain.User{{ID: 42, Name: "A", Email: "a@x.com"}}
	if !reflect.DeepEqual(got.Rows, want) || got.Total != 1 {
		t.Errorf("search a@x = %+v (total %d), want %+v", got.Rows, got.Total, want)
	}

	updated, err := svc.UpdateUser(ctx, 42, UserInput{Name: "B", Email: "b@x.com"})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.ID != 42 || updated.Name != "B" {
		t.Errorf("UpdateUser() = %+v", updated)
	}
	fetched, err := svc.GetUser(ctx, 42)
	if err != nil || fetched.Name != "B" || fetched.Email != "b@x.com" {
		t.Errorf("GetUser() = %+v, err = %v", fetched, err)
	}

	if err := svc.DeleteUser(ctx, 42); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	got, err = svc.ListUsers(ctx, query.PageRequest{Page: 1, PageSize: 10, Search: "x.com"})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if got.Total != 0 {
		t.Errorf("deleted user still listed: %+v", got.Rows)
	}
	if err := svc.DeleteUser(ctx, 42); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("second DeleteUser() error = %v, want not found", err)
	}
}

func TestUserService_UpdateUserErrors(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.UpdateUser(ctx, 999, UserInput{Name: "x", Email: "y"}); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("UpdateUser(missing) error = %v, want not found", err)
	}
	if _, err := svc.UpdateUser(ctx, 1, UserInput{Name: "x"}); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Errorf("UpdateUser(no email) error = %v, want validation", err)
	}
	if _, err := svc.GetUser(ctx, 999); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("GetUser(missing) error = %v, want not found", err)
	}
}

func TestUserService_StorageFailure(t *testing.T) {
	failing := testutil.NewFailingRepository()
	svc := NewUserService(UserDependencies{UserRepo: failing})
	ctx := context.Background()

	_, err := svc.ListUsers(ctx, query.PageRequest{})
	if !apperrors.Is(err, apperrors.CodeStorage) {
		t.Fatalf("ListUsers() error = %v, want storage error", err)
	}
	if got := apperrors.ToDomainError(err).Message; got != failing.Err.Error() {
		t.Errorf("storage message = %q, want driver message %q", got, failing.Err.Error())
	}
	if _, err := svc.CreateUser(ctx, int64Ptr(1), UserInput{Name: "a", Email: "b"}); !apperrors.Is(err, apperrors.CodeStorage) {
		t.Errorf("CreateUser() error = %v, want storage error", err)
	}
	if err := svc.DeleteUser(ctx, 1); !apperrors.Is(err, apperrors.CodeStorage) {
		t.Errorf("DeleteUser() error = %v, want storage error", err)
	}
}

func TestUserService_CacheInvalidatedByMutations(t *testing.T) {
	memCache := newMemoryCache()
	svc := newTestService(t, memCache)
	ctx := context.Background()
	req := query.PageRequest{Page: 1, PageSize: 50}

	first, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	second, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if memCache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", memCache.hits)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached page differs from stored page")
	}

	if _, err := svc.CreateUser(ctx, int64Ptr(100), UserInput{Name: "New", Email: "new@x.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if memCache.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", memCache.invalidated)
	}

	third, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if third.Total != first.Total+1 {
		t.Errorf("total after create = %d, want %d", third.Total, first.Total+1)
	}

	// Failed mutations leave the cache alone.
	if _, err := svc.CreateUser(ctx, int64Ptr(100), UserInput{Name: "Dup", Email: "d@x.com"}); err == nil {
		t.Fatal("duplicate CreateUser() should fail")
	}
	if memCache.invalidated != 1 {
		t.Errorf("invalidations after failed create = %d, want 1", memCache.invalidated)
	}
}

// interleavingRepository runs afterList once, right after the first page
// read returns and before the service caches it.
type interleavingRepository struct {
	repository.UserRepository
	once      sync.Once
	afterList func()
}

func (r *interleavingRepository) ListPage(ctx context.Context, req query.PageRequest) (query.PageResult, error) {
	result, err := r.UserRepository.ListPage(ctx, req)
	r.once.Do(r.afterList)
	return result, err
}

func TestUserService_RedisCacheDropsPageReadBeforeDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pageCache := cache.NewPageCache(client, time.Minute, zap.NewNop())

	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, pageCache, zap.NewNop()).RegisterHandlers()

	base := testutil.NewTestRepository(t)
	testutil.Seed(t, base, []domain.User{{ID: 42, Name: "A", Email: "a@x.com"}})
	repo := &interleavingRepository{UserRepository: base}
	svc := NewUserService(UserDependencies{
		UserRepo:   repo,
		Cache:      pageCache,
		Dispatcher: dispatcher,
		Limits:     query.Limits{DefaultPageSize: 10, MaxPageSize: 100},
	})
	ctx := context.Background()

	repo.afterList = func() {
		if err := svc.DeleteUser(ctx, 42); err != nil {
			t.Errorf("DeleteUser() error = %v", err)
		}
	}

	req := query.PageRequest{Page: 1, PageSize: 10, Search: "a@x"}
	first, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if first.Total != 1 {
		t.Fatalf("first read total = %d, want 1 (read before the delete)", first.Total)
	}

	for i := 0; i < 2; i++ {
		got, err := svc.ListUsers(ctx, req)
		if err != nil {
			t.Fatalf("ListUsers() error = %v", err)
		}
		if got.Total != 0 || len(got.Rows) != 0 {
			t.Errorf("read %d after delete = %+v, want no rows", i, got)
		}
	}
}

func TestUserService_RedisCacheServesRepeatedReads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pageCache := cache.NewPageCache(client, time.Minute, zap.NewNop())

	svc := newTestService(t, pageCache)
	ctx := context.Background()
	req := query.PageRequest{Page: 2, PageSize: 3, SortField: "name", SortDirection: query.Desc}

	first, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("redis keys after first read = %v, want one page entry", mr.Keys())
	}
	second, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached page = %+v, want %+v", second, first)
	}

	if _, err := svc.UpdateUser(ctx, 7, UserInput{Name: "Zed", Email: "zed@x.com"}); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	third, err := svc.ListUsers(ctx, req)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if reflect.DeepEqual(first.Rows, third.Rows) {
		t.Errorf("page after update still shows pre-update rows: %+v", third.Rows)
	}
}
