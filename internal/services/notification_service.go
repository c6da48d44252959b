package services

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/events"
	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/repositories"
)

// NotificationService persists notifications and fans them out through
// the event bus. The stored record is the source of truth; the
// real-time publish is a best-effort optimization on top of it.
type NotificationService struct {
	notifications repositories.NotificationRepository
	bus           *events.Bus
	log           zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications repositories.NotificationRepository, bus *events.Bus, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		bus:           bus,
		log:           log,
	}
}

// Notify stores the notification and publishes it to the recipient's
// room. The record is written before the transient emit so a missed
// delivery is recoverable by listing notifications later.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.bus.Publish(events.EventNotification, events.NotificationEvent{
		UserID:  n.User.Hex(),
		Payload: n,
	})
	return n, nil
}

// NotifyBestEffort is Notify for secondary side effects: failures are
// logged and swallowed so they can never abort the primary transition.
func (s *NotificationService) NotifyBestEffort(ctx context.Context, n *models.Notification) {
	if _, err := s.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("kind", string(n.Kind)).
			Str("recipient", n.User.Hex()).
			Msg("best-effort notification failed")
	}
}

// DeleteFollowRequest clears the follow_request notification paired
// with a pending request; absence is tolerated.
func (s *NotificationService) DeleteFollowRequest(ctx context.Context, ownerID, actorID primitive.ObjectID) (bool, error) {
	return s.notifications.DeleteFollowRequest(ctx, ownerID, actorID)
}

// List returns a page of the user's notifications
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID, page, limit int64, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if page < 0 {
		page = 0
	}
	return s.notifications.ListByRecipient(ctx, userID, page, limit, unreadOnly)
}

// UnreadCount returns the user's unread notification count
func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkAllRead marks every unread notification as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Delete removes one of the user's own notifications
func (s *NotificationService) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.notifications.DeleteOwned(ctx, id, userID)
}
