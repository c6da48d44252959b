package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation represents a direct-message thread in MongoDB.
type Conversation struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Participants  []primitive.ObjectID `json:"participants" bson:"participants"`
	LastMessageAt time.Time            `json:"last_message_at" bson:"last_message_at"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
}

// HasParticipant reports whether id takes part in the conversation.
func (c *Conversation) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Message represents a single message document in MongoDB.
type Message struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Conversation primitive.ObjectID `json:"conversation" bson:"conversation"`
	Sender       primitive.ObjectID `json:"sender" bson:"sender"`
	Text         string             `json:"text" bson:"text"`
	Seen         bool               `json:"seen" bson:"seen"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// CreateConversationRequest defines the request body for opening a conversation
type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,required"`
}

// SendMessageRequest defines the request body for sending a message
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}
