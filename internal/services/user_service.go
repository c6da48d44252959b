package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/repositories"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// Profile is the privacy-aware profile view returned to a viewer.
type Profile struct {
	ID             primitive.ObjectID     `json:"id"`
	Username       string                 `json:"username"`
	Name           string                 `json:"name,omitempty"`
	Bio            string                 `json:"bio,omitempty"`
	Email          string                 `json:"email,omitempty"`
	ProfilePic     string                 `json:"profile_pic,omitempty"`
	IsPrivate      bool                   `json:"is_private"`
	FollowersCount int                    `json:"followers_count"`
	FollowingCount int                    `json:"following_count"`
	Followers      []primitive.ObjectID   `json:"followers"`
	Following      []primitive.ObjectID   `json:"following"`
	FollowRequests []models.FollowRequest `json:"follow_requests,omitempty"`
	CanViewPosts   bool                   `json:"can_view_posts"`
}

// SearchResult is one row of a username search, enriched with the
// viewer's relationship to the user.
type SearchResult struct {
	ID          primitive.ObjectID `json:"id"`
	Username    string             `json:"username"`
	Name        string             `json:"name,omitempty"`
	ProfilePic  string             `json:"profile_pic,omitempty"`
	IsPrivate   bool               `json:"is_private"`
	IsFollowing bool               `json:"is_following"`
	Requested   bool               `json:"requested"`
}

// UserService handles profiles, search and account deletion.
type UserService struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	stories       repositories.StoryRepository
	interactions  repositories.InteractionRepository
	log           zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	users repositories.UserRepository,
	notifications repositories.NotificationRepository,
	stories repositories.StoryRepository,
	interactions repositories.InteractionRepository,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:         users,
		notifications: notifications,
		stories:       stories,
		interactions:  interactions,
		log:           log,
	}
}

// GetProfile resolves idOrUsername (clients pass either) and applies
// the visibility rules: private accounts hide their follower lists and
// post visibility from non-followers.
func (s *UserService) GetProfile(ctx context.Context, viewerID primitive.ObjectID, idOrUsername string) (*Profile, error) {
	var user *models.User
	var err error

	if oid, parseErr := primitive.ObjectIDFromHex(idOrUsername); parseErr == nil {
		user, err = s.users.GetUserByID(ctx, oid)
		if err != nil && !errors.Is(err, models.ErrUserNotFound) {
			return nil, err
		}
	}
	if user == nil {
		user, err = s.users.GetUserByUsername(ctx, idOrUsername)
	}
	if err != nil {
		return nil, err
	}

	isOwner := viewerID == user.ID
	isFollower := user.IsFollowedBy(viewerID)
	canViewPosts := !user.IsPrivate || isOwner || isFollower

	p := &Profile{
		ID:             user.ID,
		Username:       user.Username,
		Name:           user.Name,
		Bio:            user.Bio,
		ProfilePic:     user.ProfilePic,
		IsPrivate:      user.IsPrivate,
		FollowersCount: len(user.Followers),
		FollowingCount: len(user.Following),
		Followers:      user.Followers,
		Following:      user.Following,
		CanViewPosts:   canViewPosts,
	}

	if isOwner {
		p.Email = user.Email
		p.FollowRequests = user.FollowRequests
	}
	if !isOwner && !canViewPosts {
		p.Followers = []primitive.ObjectID{}
		p.Following = []primitive.ObjectID{}
	}
	return p, nil
}

// UpdateProfile applies a partial profile update. Username changes are
// validated for charset and availability.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if req.Username != nil {
		clean := strings.TrimSpace(*req.Username)
		if clean != "" && clean != user.Username {
			if !usernamePattern.MatchString(clean) {
				return nil, models.ErrInvalidUsername
			}
			existing, err := s.users.GetUserByUsername(ctx, clean)
			if err != nil && !errors.Is(err, models.ErrUserNotFound) {
				return nil, err
			}
			if existing != nil && existing.ID != userID {
				return nil, models.ErrUsernameTaken
			}
			set["username"] = clean
			user.Username = clean
		}
	}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		set["bio"] = strings.TrimSpace(*req.Bio)
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.ProfilePic != nil {
		set["profile_pic"] = *req.ProfilePic
		user.ProfilePic = *req.ProfilePic
	}
	if req.IsPrivate != nil {
		set["is_private"] = *req.IsPrivate
		user.IsPrivate = *req.IsPrivate
	}

	if len(set) == 0 {
		return user, nil
	}
	if err := s.users.UpdateProfile(ctx, userID, set); err != nil {
		return nil, err
	}
	return user, nil
}

// Search does a prefix search on usernames, enriched with whether the
// viewer already follows or has requested each result.
func (s *UserService) Search(ctx context.Context, viewerID primitive.ObjectID, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	users, err := s.users.SearchUsers(ctx, query, 20)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(users))
	for _, u := range users {
		results = append(results, SearchResult{
			ID:          u.ID,
			Username:    u.Username,
			Name:        u.Name,
			ProfilePic:  u.ProfilePic,
			IsPrivate:   u.IsPrivate,
			IsFollowing: u.IsFollowedBy(viewerID),
			Requested:   u.HasRequestFrom(viewerID),
		})
	}
	return results, nil
}

// DeleteAccount removes the user and cascades: the id is pulled from
// every other user's followers/following/followRequests, and the
// user's notifications, stories and interactions are deleted.
func (s *UserService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}

	if err := s.users.PullUserFromAllRelations(ctx, userID); err != nil {
		return err
	}
	if err := s.notifications.DeleteAllForUser(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user", userID.Hex()).Msg("notification cascade failed")
	}

	storyIDs, err := s.stories.DeleteAllByOwner(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID.Hex()).Msg("story cascade failed")
	} else if err := s.interactions.DeleteByStoryIDs(ctx, storyIDs); err != nil {
		s.log.Warn().Err(err).Str("user", userID.Hex()).Msg("interaction cascade failed")
	}
	if err := s.interactions.DeleteByUser(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user", userID.Hex()).Msg("interaction cleanup failed")
	}

	return s.users.DeleteUser(ctx, userID)
}
