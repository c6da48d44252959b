package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationKind enumerates notification types.
type NotificationKind string

const (
	NotificationLike           NotificationKind = "like"
	NotificationComment        NotificationKind = "comment"
	NotificationMention        NotificationKind = "mention"
	NotificationFollow         NotificationKind = "follow"
	NotificationFollowRequest  NotificationKind = "follow_request"
	NotificationFollowAccepted NotificationKind = "follow_accepted"
	NotificationFollowRejected NotificationKind = "follow_rejected"
	NotificationMessage        NotificationKind = "message"
)

// Notification represents a notification document in MongoDB.
// A follow_request notification is paired 1:1 with the embedded
// FollowRequest it represents and is deleted on accept/reject/cancel.
type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	Kind      NotificationKind   `json:"type" bson:"type"`
	Actor     primitive.ObjectID `json:"actor,omitempty" bson:"actor,omitempty"`
	Post      primitive.ObjectID `json:"post,omitempty" bson:"post,omitempty"`
	Comment   primitive.ObjectID `json:"comment,omitempty" bson:"comment,omitempty"`
	Read      bool               `json:"read" bson:"read"`
	Meta      map[string]any     `json:"meta,omitempty" bson:"meta,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
