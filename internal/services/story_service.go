package services

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/repositories"
)

// Closeness scoring windows and weights. A reply within the last week
// is worth a flat bonus; reactions count individually but only while
// the most recent one is less than a day old. Views never score.
const (
	replyWindow    = 7 * 24 * time.Hour
	reactionWindow = 24 * time.Hour
	replyBonus     = 100
	reactionBonus  = 10
)

// StoryService owns story lifecycle, interaction logging and the
// closeness-scored story feed.
type StoryService struct {
	stories      repositories.StoryRepository
	interactions repositories.InteractionRepository
	users        repositories.UserRepository
	storyTTL     time.Duration
	log          zerolog.Logger
}

// NewStoryService creates a new StoryService
func NewStoryService(
	stories repositories.StoryRepository,
	interactions repositories.InteractionRepository,
	users repositories.UserRepository,
	storyTTL time.Duration,
	log zerolog.Logger,
) *StoryService {
	return &StoryService{
		stories:      stories,
		interactions: interactions,
		users:        users,
		storyTTL:     storyTTL,
		log:          log,
	}
}

// CreateStory stores a story for ownerID. The owner's privacy flag is
// snapshotted onto the story at creation time.
func (s *StoryService) CreateStory(ctx context.Context, ownerID primitive.ObjectID, req *models.CreateStoryRequest) (*models.Story, error) {
	owner, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	story := &models.Story{
		User:      ownerID,
		MediaURL:  req.MediaURL,
		MediaID:   req.MediaID,
		IsPrivate: owner.IsPrivate,
		Metadata:  req.Metadata,
	}
	if err := s.stories.CreateStory(ctx, story, s.storyTTL); err != nil {
		return nil, err
	}
	return story, nil
}

// DeleteStory removes one of the owner's stories and cascades to its
// interaction records.
func (s *StoryService) DeleteStory(ctx context.Context, storyID, ownerID primitive.ObjectID) error {
	if err := s.stories.DeleteStory(ctx, storyID, ownerID); err != nil {
		return err
	}
	if err := s.interactions.DeleteByStoryIDs(ctx, []primitive.ObjectID{storyID}); err != nil {
		// the story itself is gone; orphaned interactions are harmless
		s.log.Warn().Err(err).Str("story", storyID.Hex()).Msg("interaction cascade failed")
	}
	return nil
}

// LogInteraction records a viewer action on a story. Interactions are
// only allowed on own stories or stories of followed posters.
func (s *StoryService) LogInteraction(ctx context.Context, viewerID, storyID primitive.ObjectID, req *models.LogInteractionRequest) error {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return err
	}

	if story.User != viewerID {
		viewer, err := s.users.GetUserByID(ctx, viewerID)
		if err != nil {
			return err
		}
		if !viewer.IsFollowing(story.User) {
			return models.ErrNotAuthorized
		}
	}

	return s.interactions.Create(ctx, &models.Interaction{
		StoryID:  storyID,
		UserID:   viewerID,
		Type:     req.Type,
		Metadata: req.Metadata,
	})
}

// Feed returns active stories grouped by poster for the viewer's
// following set (plus the viewer), ordered by closeness score.
func (s *StoryService) Feed(ctx context.Context, viewerID primitive.ObjectID) ([]models.StoryGroup, error) {
	viewer, err := s.users.GetUserByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	posters := append([]primitive.ObjectID{}, viewer.Following...)
	posters = append(posters, viewerID)

	stories, err := s.stories.GetActiveByPosters(ctx, posters)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return []models.StoryGroup{}, nil
	}

	// group by poster; stories arrive newest first, so index 0 of each
	// group is that poster's newest story
	groupIndex := make(map[primitive.ObjectID]int)
	groups := []models.StoryGroup{}
	for _, st := range stories {
		idx, ok := groupIndex[st.User]
		if !ok {
			idx = len(groups)
			groupIndex[st.User] = idx
			groups = append(groups, models.StoryGroup{UserID: st.User, IsPrivate: st.IsPrivate})
		}
		groups[idx].Stories = append(groups[idx].Stories, st)
	}

	posterIDs := make([]primitive.ObjectID, len(groups))
	newestIDs := make([]primitive.ObjectID, len(groups))
	for i, g := range groups {
		posterIDs[i] = g.UserID
		newestIDs[i] = g.Stories[0].ID
	}

	scores := s.ComputeClosenessScores(ctx, viewerID, posterIDs)

	viewed, err := s.interactions.ViewedStoryIDs(ctx, viewerID, newestIDs)
	if err != nil {
		s.log.Warn().Err(err).Str("viewer", viewerID.Hex()).Msg("viewed-story lookup failed")
		viewed = map[primitive.ObjectID]bool{}
	}

	posterInfo := make(map[primitive.ObjectID]models.User)
	if users, err := s.users.GetUsersByIDs(ctx, posterIDs); err != nil {
		s.log.Warn().Err(err).Msg("poster lookup failed")
	} else {
		for _, u := range users {
			posterInfo[u.ID] = u
		}
	}

	for i := range groups {
		if u, ok := posterInfo[groups[i].UserID]; ok {
			groups[i].Username = u.Username
			groups[i].ProfilePic = u.ProfilePic
			groups[i].IsPrivate = u.IsPrivate
		}
		groups[i].Score = scores[groups[i].UserID]
		groups[i].HasViewed = viewed[groups[i].Stories[0].ID]
	}

	// score descending; ties break on newest story time, then poster id,
	// so the ordering is deterministic across requests
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Score != groups[j].Score {
			return groups[i].Score > groups[j].Score
		}
		ti, tj := groups[i].Stories[0].CreatedAt, groups[j].Stories[0].CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return groups[i].UserID.Hex() < groups[j].UserID.Hex()
	})

	return groups, nil
}

// ComputeClosenessScores ranks candidate posters by the viewer's past
// interactions. Aggregation failure never propagates: the caller gets
// an all-zero map and the feed degrades to unscored ordering.
func (s *StoryService) ComputeClosenessScores(ctx context.Context, viewerID primitive.ObjectID, posterIDs []primitive.ObjectID) map[primitive.ObjectID]int {
	scores := make(map[primitive.ObjectID]int, len(posterIDs))
	for _, p := range posterIDs {
		scores[p] = 0
	}

	stats, err := s.interactions.StatsByViewer(ctx, viewerID, posterIDs)
	if err != nil {
		s.log.Warn().Err(err).Str("viewer", viewerID.Hex()).Msg("closeness aggregation failed, scores zeroed")
		return scores
	}

	applyClosenessStats(scores, stats, time.Now())
	return scores
}

// applyClosenessStats folds aggregation rows into the score map.
func applyClosenessStats(scores map[primitive.ObjectID]int, stats []models.InteractionStat, now time.Time) {
	for _, st := range stats {
		switch st.Type {
		case models.InteractionReply:
			if now.Sub(st.Latest) <= replyWindow {
				scores[st.Poster] += replyBonus
			}
		case models.InteractionReaction:
			if now.Sub(st.Latest) <= reactionWindow {
				scores[st.Poster] += reactionBonus * int(st.Count)
			}
		}
	}
}
