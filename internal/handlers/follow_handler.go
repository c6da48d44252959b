package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/snapgram/backend/internal/services"
)

// FollowHandler handles follow-relationship HTTP requests
type FollowHandler struct {
	follows *services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.ToggleFollow)
	g.POST("/follow-requests/:id/accept", h.AcceptRequest)
	g.POST("/follow-requests/:id/reject", h.RejectRequest)
	g.DELETE("/followers/:id", h.RemoveFollower)
}

// ToggleFollow advances the caller's relationship with :id one step:
// follow, unfollow, request, or cancel request, depending on the
// current state and the target's privacy.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	targetID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	result, err := h.follows.ToggleFollow(c.Request().Context(), actorID, targetID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

// AcceptRequest approves a pending follow request from :id
func (h *FollowHandler) AcceptRequest(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	requesterID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	result, err := h.follows.AcceptFollowRequest(c.Request().Context(), ownerID, requesterID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

// RejectRequest declines a pending follow request from :id
func (h *FollowHandler) RejectRequest(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	requesterID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.follows.RejectFollowRequest(c.Request().Context(), ownerID, requesterID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// RemoveFollower removes :id from the caller's followers
func (h *FollowHandler) RemoveFollower(c echo.Context) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	followerID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	removed, err := h.follows.RemoveFollower(c.Request().Context(), ownerID, followerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"removed": removed}})
}
