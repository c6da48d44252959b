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

// MessageRepository defines the interface for conversations and messages
type MessageRepository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	GetConversationByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	FindConversationByParticipants(ctx context.Context, participants []primitive.ObjectID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, id primitive.ObjectID, at time.Time) error

	CreateMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID primitive.ObjectID, page, limit int64) ([]models.Message, error)
	MarkSeen(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error)
}

// MongoMessageRepository implements MessageRepository on MongoDB
type MongoMessageRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
}

// CreateConversation inserts a conversation document
func (r *MongoMessageRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	now := time.Now()
	conversation.ID = primitive.NewObjectID()
	conversation.CreatedAt = now
	conversation.LastMessageAt = now
	_, err := r.conversations.InsertOne(ctx, conversation)
	return err
}

// GetConversationByID retrieves a conversation by id
func (r *MongoMessageRepository) GetConversationByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&conversation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindConversationByParticipants finds the conversation with exactly
// the given participant set, if one exists
func (r *MongoMessageRepository) FindConversationByParticipants(ctx context.Context, participants []primitive.ObjectID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.conversations.FindOne(ctx, bson.M{
		"participants": bson.M{
			"$all":  participants,
			"$size": len(participants),
		},
	}).Decode(&conversation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListConversations returns the user's conversations, most recently
// active first
func (r *MongoMessageRepository) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := r.conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// TouchConversation bumps last_message_at
func (r *MongoMessageRepository) TouchConversation(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.conversations.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_message_at": at}})
	return err
}

// CreateMessage inserts a message document
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	_, err := r.messages.InsertOne(ctx, message)
	return err
}

// ListMessages returns a page of a conversation's messages, newest first
func (r *MongoMessageRepository) ListMessages(ctx context.Context, conversationID primitive.ObjectID, page, limit int64) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page * limit).
		SetLimit(limit)
	cursor, err := r.messages.Find(ctx, bson.M{"conversation": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkSeen marks everything the reader did not send as seen and
// returns how many messages changed
func (r *MongoMessageRepository) MarkSeen(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{
			"conversation": conversationID,
			"sender":       bson.M{"$ne": readerID},
			"seen":         false,
		},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
