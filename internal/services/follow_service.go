package services

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/repositories"
)

// FollowToggleResult reports the relationship state after a toggle.
type FollowToggleResult struct {
	Following bool `json:"following"`
	Pending   bool `json:"pending"`
	Requested bool `json:"requested"`
}

// FollowAcceptResult reports an accepted request. Following is always
// true on success; Notification is absent when the follow_accepted
// record could not be written.
type FollowAcceptResult struct {
	Following    bool                 `json:"following"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// FollowService is the state machine governing the relationship
// between two users: NONE, PENDING (request outstanding on a private
// target) and FOLLOWING.
//
// Cross-document consistency: the two-sided follower/following update
// is two single-document atomic writes; when the second write fails
// the first is compensated so a one-sided relationship is never left
// behind.
type FollowService struct {
	users         repositories.UserRepository
	notifications *NotificationService
	log           zerolog.Logger
}

// NewFollowService creates a new FollowService
func NewFollowService(users repositories.UserRepository, notifications *NotificationService, log zerolog.Logger) *FollowService {
	return &FollowService{
		users:         users,
		notifications: notifications,
		log:           log,
	}
}

// ToggleFollow advances the actor→target relationship one step.
//
//   - private target, state NONE:   no request → PENDING, request → NONE
//   - public target or FOLLOWING:   toggles between NONE and FOLLOWING
//
// Self-follows are rejected outright.
func (s *FollowService) ToggleFollow(ctx context.Context, actorID, targetID primitive.ObjectID) (*FollowToggleResult, error) {
	if actorID == targetID {
		return nil, models.ErrSelfFollow
	}

	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	following := actor.IsFollowing(targetID)

	if target.IsPrivate && !following {
		if target.HasRequestFrom(actorID) {
			// cancel the outstanding request
			if _, err := s.users.PullFollowRequest(ctx, targetID, actorID); err != nil {
				return nil, err
			}
			s.deleteRequestNotification(ctx, targetID, actorID)
			return &FollowToggleResult{Pending: false, Requested: false}, nil
		}

		pushed, err := s.users.PushFollowRequest(ctx, targetID, actorID)
		if err != nil {
			return nil, err
		}
		if pushed {
			s.notifications.NotifyBestEffort(ctx, &models.Notification{
				User:  targetID,
				Kind:  models.NotificationFollowRequest,
				Actor: actorID,
			})
		}
		return &FollowToggleResult{Pending: true, Requested: true}, nil
	}

	if following {
		if err := s.unlink(ctx, actorID, targetID); err != nil {
			return nil, err
		}
		return &FollowToggleResult{Following: false}, nil
	}

	if err := s.link(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	s.notifications.NotifyBestEffort(ctx, &models.Notification{
		User:  targetID,
		Kind:  models.NotificationFollow,
		Actor: actorID,
	})
	return &FollowToggleResult{Following: true}, nil
}

// AcceptFollowRequest approves a pending request. A missing request is
// tolerated (client double-submission); the follow relationship is
// still ensured. The follow_accepted notification is delivered to the
// requester's room immediately; a failed notification write never
// fails the accept itself.
func (s *FollowService) AcceptFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (*FollowAcceptResult, error) {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}

	removed, err := s.users.PullFollowRequest(ctx, ownerID, requesterID)
	if err != nil {
		return nil, err
	}
	if !removed {
		s.log.Debug().
			Str("owner", ownerID.Hex()).
			Str("requester", requesterID.Hex()).
			Msg("accept: no pending request, ensuring follow anyway")
	}

	if err := s.link(ctx, requesterID, ownerID); err != nil {
		return nil, err
	}

	s.deleteRequestNotification(ctx, ownerID, requesterID)

	accepted := &models.Notification{
		User:  requesterID,
		Kind:  models.NotificationFollowAccepted,
		Actor: ownerID,
	}
	if _, err := s.notifications.Notify(ctx, accepted); err != nil {
		s.log.Warn().Err(err).Str("requester", requesterID.Hex()).Msg("follow_accepted notification failed")
		return &FollowAcceptResult{Following: true}, nil
	}
	return &FollowAcceptResult{Following: true, Notification: accepted}, nil
}

// RejectFollowRequest declines a pending request. The requester gets a
// best-effort follow_rejected notice that is not awaited.
func (s *FollowService) RejectFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) error {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return err
	}

	if _, err := s.users.PullFollowRequest(ctx, ownerID, requesterID); err != nil {
		return err
	}
	s.deleteRequestNotification(ctx, ownerID, requesterID)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("follow_rejected notifier panicked")
			}
		}()
		s.notifications.NotifyBestEffort(context.WithoutCancel(ctx), &models.Notification{
			User:  requesterID,
			Kind:  models.NotificationFollowRejected,
			Actor: ownerID,
		})
	}()

	return nil
}

// RemoveFollower removes followerID from the owner's followers and the
// owner from the follower's following, always both sides. Idempotent:
// reports whether any removal occurred.
func (s *FollowService) RemoveFollower(ctx context.Context, ownerID, followerID primitive.ObjectID) (bool, error) {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return false, err
	}
	if _, err := s.users.GetUserByID(ctx, followerID); err != nil {
		return false, err
	}

	removedFollower, err := s.users.RemoveFollower(ctx, ownerID, followerID)
	if err != nil {
		return false, err
	}
	removedFollowing, err := s.users.RemoveFollowing(ctx, followerID, ownerID)
	if err != nil {
		if removedFollower {
			s.compensate(ctx, func(ctx context.Context) error {
				_, e := s.users.AddFollower(ctx, ownerID, followerID)
				return e
			})
		}
		return false, err
	}
	return removedFollower || removedFollowing, nil
}

// link establishes actor→target: actor into target.followers, target
// into actor.following. Both writes are idempotent ($addToSet); a
// failed second write rolls back the first.
func (s *FollowService) link(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	added, err := s.users.AddFollower(ctx, targetID, actorID)
	if err != nil {
		return err
	}
	if _, err := s.users.AddFollowing(ctx, actorID, targetID); err != nil {
		if added {
			s.compensate(ctx, func(ctx context.Context) error {
				_, e := s.users.RemoveFollower(ctx, targetID, actorID)
				return e
			})
		}
		return err
	}
	return nil
}

// unlink tears down actor→target on both documents, rolling back the
// first removal if the second fails.
func (s *FollowService) unlink(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	removed, err := s.users.RemoveFollower(ctx, targetID, actorID)
	if err != nil {
		return err
	}
	if _, err := s.users.RemoveFollowing(ctx, actorID, targetID); err != nil {
		if removed {
			s.compensate(ctx, func(ctx context.Context) error {
				_, e := s.users.AddFollower(ctx, targetID, actorID)
				return e
			})
		}
		return err
	}
	return nil
}

// compensate runs a rollback write; a failed rollback is only loggable,
// the original error still propagates to the caller.
func (s *FollowService) compensate(ctx context.Context, fn func(context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.log.Error().Err(err).Msg("follow rollback failed, relationship may be one-sided")
	}
}

// deleteRequestNotification clears the follow_request notification
// paired with a pending request. Best-effort.
func (s *FollowService) deleteRequestNotification(ctx context.Context, ownerID, actorID primitive.ObjectID) {
	if _, err := s.notifications.DeleteFollowRequest(ctx, ownerID, actorID); err != nil {
		s.log.Warn().Err(err).
			Str("owner", ownerID.Hex()).
			Str("actor", actorID.Hex()).
			Msg("could not delete follow_request notification")
	}
}
