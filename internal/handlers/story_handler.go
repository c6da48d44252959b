package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/services"
)

// StoryHandler handles story HTTP requests
type StoryHandler struct {
	stories *services.StoryService
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(stories *services.StoryService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.POST("/stories", h.CreateStory)
	g.GET("/stories/feed", h.Feed)
	g.DELETE("/stories/:id", h.DeleteStory)
	g.POST("/stories/:id/interactions", h.LogInteraction)
}

// CreateStory stores a new story for the caller
func (h *StoryHandler) CreateStory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	story, err := h.stories.CreateStory(c.Request().Context(), userID, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": story})
}

// Feed returns active stories grouped by poster, closest posters first
func (h *StoryHandler) Feed(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	groups, err := h.stories.Feed(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": groups})
}

// DeleteStory removes one of the caller's stories
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	storyID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.stories.DeleteStory(c.Request().Context(), storyID, userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// LogInteraction records a view, reply or reaction on a story
func (h *StoryHandler) LogInteraction(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	storyID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.LogInteractionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !models.ValidInteractionType(req.Type) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid interaction type")
	}

	if err := h.stories.LogInteraction(c.Request().Context(), userID, storyID, &req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true})
}
