package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/snapgram/backend/internal/models"
)

// InteractionRepository defines the interface for story interactions
type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	StatsByViewer(ctx context.Context, viewerID primitive.ObjectID, posterIDs []primitive.ObjectID) ([]models.InteractionStat, error)
	ViewedStoryIDs(ctx context.Context, viewerID primitive.ObjectID, storyIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	DeleteByStoryIDs(ctx context.Context, storyIDs []primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoInteractionRepository implements InteractionRepository on MongoDB
type MongoInteractionRepository struct {
	collection *mongo.Collection
}

// NewMongoInteractionRepository creates a new MongoInteractionRepository
func NewMongoInteractionRepository(db *mongo.Database) *MongoInteractionRepository {
	return &MongoInteractionRepository{collection: db.Collection("interactions")}
}

// Create inserts an interaction document
func (r *MongoInteractionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	interaction.ID = primitive.NewObjectID()
	interaction.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, interaction)
	return err
}

// StatsByViewer aggregates the viewer's interactions grouped by
// (poster, type): count plus most recent timestamp. The poster comes
// from joining each interaction's story.
func (r *MongoInteractionRepository) StatsByViewer(ctx context.Context, viewerID primitive.ObjectID, posterIDs []primitive.ObjectID) ([]models.InteractionStat, error) {
	if len(posterIDs) == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": viewerID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "stories",
			"localField":   "story_id",
			"foreignField": "_id",
			"as":           "story",
		}}},
		{{Key: "$unwind", Value: "$story"}},
		{{Key: "$match", Value: bson.M{"story.user": bson.M{"$in": posterIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"poster": "$story.user", "type": "$type"},
			"count":  bson.M{"$sum": 1},
			"latest": bson.M{"$max": "$created_at"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":    0,
			"poster": "$_id.poster",
			"type":   "$_id.type",
			"count":  1,
			"latest": 1,
		}}},
	}

	opts := options.Aggregate().SetAllowDiskUse(true)
	cursor, err := r.collection.Aggregate(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []models.InteractionStat
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ViewedStoryIDs reports which of storyIDs the viewer has a view
// interaction for, in one batch query.
func (r *MongoInteractionRepository) ViewedStoryIDs(ctx context.Context, viewerID primitive.ObjectID, storyIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	viewed := make(map[primitive.ObjectID]bool)
	if len(storyIDs) == 0 {
		return viewed, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"user_id":  viewerID,
		"type":     models.InteractionView,
		"story_id": bson.M{"$in": storyIDs},
	}, options.Find().SetProjection(bson.M{"story_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		StoryID primitive.ObjectID `bson:"story_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		viewed[d.StoryID] = true
	}
	return viewed, nil
}

// DeleteByStoryIDs removes interactions belonging to deleted stories
func (r *MongoInteractionRepository) DeleteByStoryIDs(ctx context.Context, storyIDs []primitive.ObjectID) error {
	if len(storyIDs) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"story_id": bson.M{"$in": storyIDs}})
	return err
}

// DeleteByUser removes every interaction made by userID
func (r *MongoInteractionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
