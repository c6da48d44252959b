package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/models"
)

func newStoryFixture(users ...*models.User) (*StoryService, *fakeStoryRepo, *fakeInteractionRepo, *fakeUserRepo) {
	userRepo := newFakeUserRepo(users...)
	storyRepo := &fakeStoryRepo{}
	interactionRepo := &fakeInteractionRepo{}
	svc := NewStoryService(storyRepo, interactionRepo, userRepo, 24*time.Hour, zerolog.Nop())
	return svc, storyRepo, interactionRepo, userRepo
}

func TestApplyClosenessStats(t *testing.T) {
	p1 := primitive.NewObjectID()
	p2 := primitive.NewObjectID()
	p3 := primitive.NewObjectID()
	now := time.Now()

	tests := []struct {
		name  string
		stats []models.InteractionStat
		want  map[primitive.ObjectID]int
	}{
		{
			name: "recent reply scores the flat bonus once",
			stats: []models.InteractionStat{
				{Poster: p1, Type: models.InteractionReply, Count: 3, Latest: now.Add(-3 * 24 * time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 100},
		},
		{
			name: "reply older than a week scores nothing",
			stats: []models.InteractionStat{
				{Poster: p1, Type: models.InteractionReply, Count: 1, Latest: now.Add(-8 * 24 * time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 0},
		},
		{
			name: "reactions count individually while fresh",
			stats: []models.InteractionStat{
				{Poster: p1, Type: models.InteractionReaction, Count: 5, Latest: now.Add(-2 * time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 50},
		},
		{
			name: "stale reactions score nothing",
			stats: []models.InteractionStat{
				{Poster: p1, Type: models.InteractionReaction, Count: 5, Latest: now.Add(-30 * time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 0},
		},
		{
			name: "views never score",
			stats: []models.InteractionStat{
				{Poster: p1, Type: models.InteractionView, Count: 50, Latest: now.Add(-time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 0},
		},
		{
			name: "reply and reactions stack",
			stats: []models.InteractionStat{
				{Poster: p1, Type: models.InteractionReply, Count: 1, Latest: now.Add(-3 * 24 * time.Hour)},
				{Poster: p1, Type: models.InteractionReaction, Count: 5, Latest: now.Add(-time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 150},
		},
		{
			name: "scores stay per poster",
			stats: []models.InteractionStat{
				{Poster: p2, Type: models.InteractionReply, Count: 1, Latest: now.Add(-24 * time.Hour)},
				{Poster: p3, Type: models.InteractionReaction, Count: 3, Latest: now.Add(-time.Hour)},
			},
			want: map[primitive.ObjectID]int{p1: 0, p2: 100, p3: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := make(map[primitive.ObjectID]int)
			for p := range tt.want {
				scores[p] = 0
			}
			applyClosenessStats(scores, tt.stats, now)
			assert.Equal(t, tt.want, scores)
		})
	}
}

func TestComputeClosenessScoresZeroBaseline(t *testing.T) {
	viewer := newTestUser("viewer", false)
	svc, _, interactions, _ := newStoryFixture(viewer)
	interactions.stats = nil

	p1 := primitive.NewObjectID()
	p2 := primitive.NewObjectID()
	scores := svc.ComputeClosenessScores(context.Background(), viewer.ID, []primitive.ObjectID{p1, p2})
	assert.Equal(t, map[primitive.ObjectID]int{p1: 0, p2: 0}, scores)
}

func TestComputeClosenessScoresDegradesOnAggregationFailure(t *testing.T) {
	viewer := newTestUser("viewer", false)
	svc, _, interactions, _ := newStoryFixture(viewer)
	interactions.errStats = errors.New("aggregation timed out")

	p1 := primitive.NewObjectID()
	scores := svc.ComputeClosenessScores(context.Background(), viewer.ID, []primitive.ObjectID{p1})
	assert.Equal(t, map[primitive.ObjectID]int{p1: 0}, scores)
}

func TestFeedOrdersByClosenessScore(t *testing.T) {
	viewer := newTestUser("viewer", false)
	p1 := newTestUser("p1", false)
	p2 := newTestUser("p2", false)
	p3 := newTestUser("p3", false)
	viewer.Following = []primitive.ObjectID{p1.ID, p2.ID, p3.ID}

	svc, stories, interactions, _ := newStoryFixture(viewer, p1, p2, p3)

	now := time.Now()
	// the repository returns active stories newest first
	stories.stories = []models.Story{
		{ID: primitive.NewObjectID(), User: p1.ID, CreatedAt: now.Add(-time.Hour)},
		{ID: primitive.NewObjectID(), User: p2.ID, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: primitive.NewObjectID(), User: p3.ID, CreatedAt: now.Add(-3 * time.Hour)},
	}
	interactions.stats = []models.InteractionStat{
		{Poster: p2.ID, Type: models.InteractionReply, Count: 1, Latest: now.Add(-3 * 24 * time.Hour)},
		{Poster: p3.ID, Type: models.InteractionReaction, Count: 5, Latest: now.Add(-2 * time.Hour)},
		{Poster: p1.ID, Type: models.InteractionView, Count: 40, Latest: now.Add(-time.Hour)},
	}

	groups, err := svc.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, p2.ID, groups[0].UserID)
	assert.Equal(t, 100, groups[0].Score)
	assert.Equal(t, p3.ID, groups[1].UserID)
	assert.Equal(t, 50, groups[1].Score)
	assert.Equal(t, p1.ID, groups[2].UserID)
	assert.Equal(t, 0, groups[2].Score)
	assert.Equal(t, "p2", groups[0].Username)
}

func TestFeedTieBreaksOnNewestStory(t *testing.T) {
	viewer := newTestUser("viewer", false)
	p1 := newTestUser("p1", false)
	p2 := newTestUser("p2", false)
	viewer.Following = []primitive.ObjectID{p1.ID, p2.ID}

	svc, stories, _, _ := newStoryFixture(viewer, p1, p2)

	now := time.Now()
	stories.stories = []models.Story{
		{ID: primitive.NewObjectID(), User: p2.ID, CreatedAt: now.Add(-time.Hour)},
		{ID: primitive.NewObjectID(), User: p1.ID, CreatedAt: now.Add(-5 * time.Hour)},
	}

	groups, err := svc.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// both score zero, so the fresher poster wins
	assert.Equal(t, p2.ID, groups[0].UserID)
	assert.Equal(t, p1.ID, groups[1].UserID)
}

func TestFeedIncludesOwnStories(t *testing.T) {
	viewer := newTestUser("viewer", false)
	svc, stories, _, _ := newStoryFixture(viewer)

	stories.stories = []models.Story{
		{ID: primitive.NewObjectID(), User: viewer.ID, CreatedAt: time.Now()},
	}

	groups, err := svc.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, viewer.ID, groups[0].UserID)
}

func TestFeedGroupsStoriesPerPoster(t *testing.T) {
	viewer := newTestUser("viewer", false)
	p1 := newTestUser("p1", false)
	viewer.Following = []primitive.ObjectID{p1.ID}

	svc, stories, interactions, _ := newStoryFixture(viewer, p1)

	now := time.Now()
	newest := models.Story{ID: primitive.NewObjectID(), User: p1.ID, CreatedAt: now.Add(-time.Hour)}
	stories.stories = []models.Story{
		newest,
		{ID: primitive.NewObjectID(), User: p1.ID, CreatedAt: now.Add(-4 * time.Hour)},
	}
	interactions.viewed = map[primitive.ObjectID]bool{newest.ID: true}

	groups, err := svc.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Stories, 2)
	assert.Equal(t, newest.ID, groups[0].Stories[0].ID)
	assert.True(t, groups[0].HasViewed)
}

func TestFeedEmpty(t *testing.T) {
	viewer := newTestUser("viewer", false)
	svc, _, _, _ := newStoryFixture(viewer)

	groups, err := svc.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestLogInteractionRequiresFollowOrOwnership(t *testing.T) {
	viewer := newTestUser("viewer", false)
	poster := newTestUser("poster", false)
	svc, stories, interactions, _ := newStoryFixture(viewer, poster)

	story := models.Story{ID: primitive.NewObjectID(), User: poster.ID, CreatedAt: time.Now()}
	stories.stories = []models.Story{story}

	err := svc.LogInteraction(context.Background(), viewer.ID, story.ID, &models.LogInteractionRequest{Type: models.InteractionView})
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
	assert.Empty(t, interactions.created)
}

func TestLogInteractionOnFollowedPoster(t *testing.T) {
	viewer := newTestUser("viewer", false)
	poster := newTestUser("poster", false)
	viewer.Following = []primitive.ObjectID{poster.ID}
	svc, stories, interactions, _ := newStoryFixture(viewer, poster)

	story := models.Story{ID: primitive.NewObjectID(), User: poster.ID, CreatedAt: time.Now()}
	stories.stories = []models.Story{story}

	err := svc.LogInteraction(context.Background(), viewer.ID, story.ID, &models.LogInteractionRequest{Type: models.InteractionReply})
	require.NoError(t, err)
	require.Len(t, interactions.created, 1)
	assert.Equal(t, models.InteractionReply, interactions.created[0].Type)
	assert.Equal(t, viewer.ID, interactions.created[0].UserID)
}

func TestCreateStorySnapshotsPrivacy(t *testing.T) {
	owner := newTestUser("owner", true)
	svc, _, _, _ := newStoryFixture(owner)

	story, err := svc.CreateStory(context.Background(), owner.ID, &models.CreateStoryRequest{MediaURL: "https://cdn.example.com/s.jpg"})
	require.NoError(t, err)
	assert.True(t, story.IsPrivate)
	assert.Equal(t, story.CreatedAt.Add(24*time.Hour), story.ExpiresAt)
}

func TestDeleteStoryOwnerOnly(t *testing.T) {
	owner := newTestUser("owner", false)
	other := newTestUser("other", false)
	svc, stories, _, _ := newStoryFixture(owner, other)

	story := models.Story{ID: primitive.NewObjectID(), User: owner.ID, CreatedAt: time.Now()}
	stories.stories = []models.Story{story}

	err := svc.DeleteStory(context.Background(), story.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrStoryNotFound)

	require.NoError(t, svc.DeleteStory(context.Background(), story.ID, owner.ID))
	assert.Equal(t, []primitive.ObjectID{story.ID}, stories.deleted)
}
