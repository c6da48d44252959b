package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/services"
)

// UserHandler handles profile-related HTTP requests
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterProfileRoutes registers profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/me", h.GetOwnProfile)
	g.PATCH("/users/me", h.UpdateProfile)
	g.DELETE("/users/me", h.DeleteAccount)
	g.GET("/users/:id", h.GetProfile)
}

// GetProfile returns a privacy-aware profile view. The :id parameter
// accepts either an ObjectID or a username.
func (h *UserHandler) GetProfile(c echo.Context) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	profile, err := h.users.GetProfile(c.Request().Context(), viewerID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": profile})
}

// GetOwnProfile returns the caller's own profile
func (h *UserHandler) GetOwnProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	profile, err := h.users.GetProfile(c.Request().Context(), userID, userID.Hex())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": profile})
}

// UpdateProfile applies a partial profile update
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.users.UpdateProfile(c.Request().Context(), userID, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user.ToCompact()})
}

// SearchUsers does a prefix search on usernames
func (h *UserHandler) SearchUsers(c echo.Context) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	results, err := h.users.Search(c.Request().Context(), viewerID, c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": results})
}

// DeleteAccount removes the caller's account and cascades
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.users.DeleteAccount(c.Request().Context(), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
