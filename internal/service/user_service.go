package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/observability"
	"github.com/spec-kit/user-directory/internal/query"
	"github.com/spec-kit/user-directory/internal/repository"
	apperrors "github.com/spec-kit/user-directory/pkg/util/errorutil"
)

// PageCache caches resolved pages. Implementations must treat failures as
// misses; a nil PageCache disables caching.
//
// Get reports the cache generation it looked under. Set receives that
// generation and must not store the page once Invalidate has moved past it,
// so a page read before a mutation never outlives the mutation.
type PageCache interface {
	Get(ctx context.Context, req query.PageRequest) (query.PageResult, int64, bool)
	Set(ctx context.Context, gen int64, req query.PageRequest, result query.PageResult)
	Invalidate(ctx context.Context) error
}

// UserService resolves pages and applies mutations to the user directory.
type UserService struct {
	users      repository.UserRepository
	cache      PageCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	limits     query.Limits
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Cache      PageCache
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Limits     query.Limits
	Logger     *zap.Logger
}

// UserInput carries the writable fields of a user.
type UserInput struct {
	Name  string
	Email string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		limits:     deps.Limits,
		logger:     logger,
	}
}

// Limits returns the page size bounds applied to list requests.
func (s *UserService) Limits() query.Limits {
	return s.limits
}

// ListUsers resolves one page. Invalid paging or sort input is coerced, never
// rejected; a page past the end yields no rows and the real total.
func (s *UserService) ListUsers(ctx context.Context, req query.PageRequest) (query.PageResult, error) {
	req = req.Normalize(s.limits)

	gen := int64(-1)
	if s.cache != nil {
		cached, cachedGen, ok := s.cache.Get(ctx, req)
		if ok {
			s.metrics.RecordPage("cache", len(cached.Rows))
			return cached, nil
		}
		gen = cachedGen
	}

	result, err := s.users.ListPage(ctx, req)
	if err != nil {
		return query.PageResult{}, apperrors.NewStorageError(err)
	}
	if result.Rows == nil {
		result.Rows = []domain.User{}
	}
	result.Page = req.Page
	result.PageSize = req.PageSize

	s.metrics.RecordPage("storage", len(result.Rows))
	if s.cache != nil {
		s.cache.Set(ctx, gen, req, result)
	}
	return result, nil
}

// GetUser returns a single user.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return user, nil
}

// CreateUser inserts a user with a caller-chosen id.
func (s *UserService) CreateUser(ctx context.Context, id *int64, input UserInput) (*domain.User, error) {
	input = input.trimmed()
	missing := input.missing()
	if id == nil {
		missing = append([]string{"id"}, missing...)
	}
	if len(missing) > 0 {
		return nil, requiredFieldsError(missing)
	}

	user := &domain.User{ID: *id, Name: input.Name, Email: input.Email}
	err := s.users.Create(ctx, user)
	s.metrics.RecordMutation("create", err)
	if err != nil {
		return nil, mapRepoError(err, user.ID)
	}

	s.publish(ctx, events.NewUserEvent(events.EventUserCreated, user.ID, user))
	return user, nil
}

// UpdateUser replaces name and email of the user identified by id. The id
// itself never changes.
func (s *UserService) UpdateUser(ctx context.Context, id int64, input UserInput) (*domain.User, error) {
	input = input.trimmed()
	if missing := input.missing(); len(missing) > 0 {
		return nil, requiredFieldsError(missing)
	}

	user := &domain.User{ID: id, Name: input.Name, Email: input.Email}
	err := s.users.Update(ctx, user)
	s.metrics.RecordMutation("update", err)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	user.ID = id

	s.publish(ctx, events.NewUserEvent(events.EventUserUpdated, id, user))
	return user, nil
}

// DeleteUser removes a user permanently.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	err := s.users.Delete(ctx, id)
	s.metrics.RecordMutation("delete", err)
	if err != nil {
		return mapRepoError(err, id)
	}

	s.publish(ctx, events.NewUserEvent(events.EventUserDeleted, id, nil))
	return nil
}

// publish never fails the mutation: the row is already written.
func (s *UserService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("user_id", event.UserID),
			zap.Error(err))
	}
}

func (in UserInput) trimmed() UserInput {
	return UserInput{Name: strings.TrimSpace(in.Name), Email: strings.TrimSpace(in.Email)}
}

func (in UserInput) missing() []string {
	var fields []string
	if in.Name == "" {
		fields = append(fields, "name")
	}
	if in.Email == "" {
		fields = append(fields, "email")
	}
	return fields
}

func requiredFieldsError(fields []string) error {
	details := make(map[string]any, len(fields))
	for _, f := range fields {
		details[f] = "required"
	}
	return apperrors.NewValidationError(strings.Join(fields, ", ")+" required", details)
}

func mapRepoError(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicateID):
		return apperrors.NewConflict("user id already exists", map[string]any{"id": id})
	default:
		return apperrors.NewStorageError(err)
	}
}
