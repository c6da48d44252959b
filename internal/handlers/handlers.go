package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/middleware"
	"github.com/snapgram/backend/internal/models"
)

// currentUserID extracts the authenticated user's id from the request
// context. Routes behind the JWT middleware always have it; a missing
// or malformed id means the middleware was bypassed.
func currentUserID(c echo.Context) (primitive.ObjectID, error) {
	raw := middleware.UserIDFromContext(c)
	if raw == "" {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// objectIDParam parses a path parameter as an ObjectID
func objectIDParam(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// httpError maps service-level sentinel errors onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrNotificationNotFound),
		errors.Is(err, models.ErrConversationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrNotAuthenticated),
		errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrNotAuthorized),
		errors.Is(err, models.ErrNotParticipant):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrSelfFollow),
		errors.Is(err, models.ErrInvalidUsername):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUsernameTaken),
		errors.Is(err, models.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
