package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/snapgram/backend/internal/models"
)

// StoryRepository defines the interface for story operations.
// Queries always filter on expires_at even though the collection has a
// TTL index, because TTL deletion runs on a background cycle.
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story, ttl time.Duration) error
	GetStoryByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	GetActiveByPosters(ctx context.Context, posterIDs []primitive.ObjectID) ([]models.Story, error)
	DeleteStory(ctx context.Context, id, ownerID primitive.ObjectID) error
	DeleteAllByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// MongoStoryRepository implements StoryRepository on MongoDB
type MongoStoryRepository struct {
	collection *mongo.Collection
}

// NewMongoStoryRepository creates a new MongoStoryRepository
func NewMongoStoryRepository(db *mongo.Database) *MongoStoryRepository {
	return &MongoStoryRepository{collection: db.Collection("stories")}
}

// CreateStory inserts a story expiring after ttl
func (r *MongoStoryRepository) CreateStory(ctx context.Context, story *models.Story, ttl time.Duration) error {
	story.ID = primitive.NewObjectID()
	story.CreatedAt = time.Now()
	story.ExpiresAt = story.CreatedAt.Add(ttl)
	_, err := r.collection.InsertOne(ctx, story)
	return err
}

// GetStoryByID retrieves a single non-expired story
func (r *MongoStoryRepository) GetStoryByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	var story models.Story
	err := r.collection.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrStoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// GetActiveByPosters returns non-expired stories from the given
// posters, newest first
func (r *MongoStoryRepository) GetActiveByPosters(ctx context.Context, posterIDs []primitive.ObjectID) ([]models.Story, error) {
	filter := bson.M{
		"user":       bson.M{"$in": posterIDs},
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stories []models.Story
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// DeleteStory deletes a story only if ownerID owns it
func (r *MongoStoryRepository) DeleteStory(ctx context.Context, id, ownerID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}

// DeleteAllByOwner removes every story by ownerID and returns the
// deleted ids so the caller can cascade to interactions
func (r *MongoStoryRepository) DeleteAllByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"user": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err = r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}
