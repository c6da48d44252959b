package models

import "errors"

// Sentinel errors shared across services; handlers map them to HTTP statuses.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrStoryNotFound        = errors.New("story not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrConversationNotFound = errors.New("conversation not found")

	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	ErrSelfFollow      = errors.New("cannot follow yourself")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
	ErrEmailTaken      = errors.New("email already registered")
	ErrNotParticipant  = errors.New("not a conversation participant")
)
