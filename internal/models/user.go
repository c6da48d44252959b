package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FollowRequest is a pending follow request embedded in the owner's document.
// At most one request per (requester, owner) pair is kept.
type FollowRequest struct {
	User      primitive.ObjectID `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// RefreshToken is a hashed refresh token embedded in the user document.
// Rotation pulls the old hash and pushes the new one in a single update.
type RefreshToken struct {
	TokenHash string    `json:"-" bson:"token_hash"`
	CreatedAt time.Time `json:"-" bson:"created_at"`
}

// User represents a user document in MongoDB.
//
// Invariants maintained by the follow workflow:
//   - a user never appears in its own Followers/Following/FollowRequests
//   - Followers/Following stay symmetric across the two documents
type User struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Username       string               `json:"username" bson:"username"`
	Email          string               `json:"email,omitempty" bson:"email"`
	PasswordHash   string               `json:"-" bson:"password_hash"`
	Name           string               `json:"name,omitempty" bson:"name,omitempty"`
	Bio            string               `json:"bio,omitempty" bson:"bio,omitempty"`
	ProfilePic     string               `json:"profile_pic,omitempty" bson:"profile_pic,omitempty"`
	IsPrivate      bool                 `json:"is_private" bson:"is_private"`
	FollowRequests []FollowRequest      `json:"follow_requests,omitempty" bson:"follow_requests"`
	Followers      []primitive.ObjectID `json:"followers" bson:"followers"`
	Following      []primitive.ObjectID `json:"following" bson:"following"`
	RefreshTokens  []RefreshToken       `json:"-" bson:"refresh_tokens,omitempty"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
}

// IsFollowedBy reports whether id is in the user's followers set.
func (u *User) IsFollowedBy(id primitive.ObjectID) bool {
	for _, f := range u.Followers {
		if f == id {
			return true
		}
	}
	return false
}

// IsFollowing reports whether the user follows id.
func (u *User) IsFollowing(id primitive.ObjectID) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether a pending follow request from id exists.
func (u *User) HasRequestFrom(id primitive.ObjectID) bool {
	for _, r := range u.FollowRequests {
		if r.User == id {
			return true
		}
	}
	return false
}

// UserCompact is the minimal user shape embedded in other responses.
type UserCompact struct {
	ID         primitive.ObjectID `json:"id"`
	Username   string             `json:"username"`
	Name       string             `json:"name,omitempty"`
	ProfilePic string             `json:"profile_pic,omitempty"`
}

// ToCompact converts the user to its compact representation.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		ProfilePic: u.ProfilePic,
	}
}

// RegisterRequest defines the signup request body
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=50"`
}

// LoginRequest defines the signin request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to rotate
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest defines the profile patch body; nil fields are untouched
type UpdateProfileRequest struct {
	Username   *string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	Name       *string `json:"name,omitempty" validate:"omitempty,max=50"`
	Bio        *string `json:"bio,omitempty" validate:"omitempty,max=300"`
	ProfilePic *string `json:"profile_pic,omitempty"`
	IsPrivate  *bool   `json:"is_private,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
