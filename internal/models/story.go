package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story represents an ephemeral story document in MongoDB.
// Expiry is enforced by a TTL index on expires_at; queries still filter
// on it because TTL deletion runs on a background cycle.
type Story struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	MediaURL  string             `json:"url" bson:"url"`
	MediaID   string             `json:"media_id,omitempty" bson:"media_id,omitempty"`
	IsPrivate bool               `json:"is_private" bson:"is_private"`
	Metadata  map[string]any     `json:"metadata,omitempty" bson:"metadata,omitempty"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// InteractionType enumerates story interaction types.
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionReply    InteractionType = "reply"
	InteractionReaction InteractionType = "reaction"
)

// ValidInteractionType reports whether t is a known interaction type.
func ValidInteractionType(t InteractionType) bool {
	switch t {
	case InteractionView, InteractionReply, InteractionReaction:
		return true
	}
	return false
}

// Interaction records a viewer action on a story. Interactions are
// deleted when their story is deleted.
type Interaction struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StoryID   primitive.ObjectID `json:"story_id" bson:"story_id"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Type      InteractionType    `json:"type" bson:"type"`
	Metadata  map[string]any     `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// InteractionStat is one row of the per-(poster, type) aggregation used
// by the closeness scorer: how many interactions the viewer had with
// that poster's stories and when the most recent one happened.
type InteractionStat struct {
	Poster primitive.ObjectID `bson:"poster"`
	Type   InteractionType    `bson:"type"`
	Count  int64              `bson:"count"`
	Latest time.Time          `bson:"latest"`
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	MediaURL string         `json:"url" validate:"required,url"`
	MediaID  string         `json:"media_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// LogInteractionRequest defines the request body for logging a story interaction
type LogInteractionRequest struct {
	Type     InteractionType `json:"type" validate:"required"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// StoryGroup is one poster's entry in the story feed, ordered by
// closeness score.
type StoryGroup struct {
	UserID     primitive.ObjectID `json:"user_id"`
	Username   string             `json:"username"`
	ProfilePic string             `json:"profile_pic,omitempty"`
	IsPrivate  bool               `json:"is_private"`
	Score      int                `json:"score"`
	HasViewed  bool               `json:"has_viewed"`
	Stories    []Story            `json:"stories"`
}
