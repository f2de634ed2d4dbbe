package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/events"
)

// AuditService reacts to user mutations: it writes an audit log line and
// drops cached pages so the next list reflects the change.
type AuditService struct {
	dispatcher events.Dispatcher
	cache      PageCache
	logger     *zap.Logger
}

// NewAuditService creates the service. cache may be nil.
func NewAuditService(dispatcher events.Dispatcher, cache PageCache, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		cache:      cache,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventUserCreated,
		events.EventUserUpdated,
		events.EventUserDeleted,
	} {
		a.dispatcher.Subscribe(eventType, a.handleUserChanged)
	}
}

func (a *AuditService) handleUserChanged(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("user_id", event.UserID),
		zap.Time("at", event.Timestamp),
	}
	if event.User != nil {
		fields = append(fields, zap.String("name", event.User.Name), zap.String("email", event.User.Email))
	}
	a.logger.Info("user changed", fields...)

	if a.cache == nil {
		return nil
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate page cache: %w", err)
	}
	return nil
}
