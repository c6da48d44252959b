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

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, userID primitive.ObjectID, page, limit int64, unreadOnly bool) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteFollowRequest(ctx context.Context, ownerID, actorID primitive.ObjectID) (bool, error)
	DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoNotificationRepository implements NotificationRepository on MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// Create inserts a notification document
func (r *MongoNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// ListByRecipient returns the user's notifications, newest first
func (r *MongoNotificationRepository) ListByRecipient(ctx context.Context, userID primitive.ObjectID, page, limit int64, unreadOnly bool) ([]models.Notification, error) {
	filter := bson.M{"user": userID}
	if unreadOnly {
		filter["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page * limit).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount returns how many unread notifications the user has
func (r *MongoNotificationRepository) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user": userID, "read": false})
}

// MarkAllRead flips the read flag on every unread notification
func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"user": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}

// DeleteOwned deletes a notification only if it belongs to userID
func (r *MongoNotificationRepository) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error {
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "user": userID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotificationNotFound
	}
	return err
}

// DeleteFollowRequest removes the follow_request notification paired
// with a pending request. Absence is tolerated (double-submission).
func (r *MongoNotificationRepository) DeleteFollowRequest(ctx context.Context, ownerID, actorID primitive.ObjectID) (bool, error) {
	err := r.collection.FindOneAndDelete(ctx, bson.M{
		"user":  ownerID,
		"type":  models.NotificationFollowRequest,
		"actor": actorID,
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteAllForUser removes notifications the user received or caused.
// Used by account deletion.
func (r *MongoNotificationRepository) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{
		"$or": []bson.M{{"user": userID}, {"actor": userID}},
	})
	return err
}
