package ports

import (
	"context"

	"github.com/parksafe/parksafe/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAvailabilityReport(ctx context.Context, report *domain.AvailabilityReport) error
	PublishMarkerUpdated(ctx context.Context, update *domain.MarkerUpdated) error
	PublishAccountDeleted(ctx context.Context, event *domain.AccountDeleted) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAvailabilityReports(ctx context.Context, handler func(ctx context.Context, report *domain.AvailabilityReport) error) error
	SubscribeMarkerUpdates(ctx context.Context, handler func(ctx context.Context, update *domain.MarkerUpdated) error) error
}

// CacheService provides read-through caching. Get returns ErrNotFound
// for a missing key.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// MarkerFinder serves normalized markers around a point. Implemented by
// the marker service; the live session store depends on this instead of
// the service so tests can drive it with a stub.
type MarkerFinder interface {
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int, kinds []domain.MarkerKind) ([]domain.Marker, error)
}

// DeletionScheduler hands an account deletion over to the workflow
// engine. A nil scheduler means deletions run synchronously in-process.
type DeletionScheduler interface {
	ScheduleAccountDeletion(ctx context.Context, userID string) (workflowID string, err error)
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, userID, title, body string) error
}
