package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/services"
)

// MessageHandler handles direct-message HTTP requests
type MessageHandler struct {
	messages *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// RegisterMessageRoutes registers messaging-related routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/conversations", h.OpenConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
	g.POST("/conversations/:id/seen", h.MarkSeen)
}

// OpenConversation returns (or creates) the conversation with the given
// participants
func (h *MessageHandler) OpenConversation(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	participants := make([]primitive.ObjectID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid participant id")
		}
		participants = append(participants, id)
	}

	conversation, err := h.messages.OpenConversation(c.Request().Context(), userID, participants)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": conversation})
}

// ListConversations returns the caller's conversations
func (h *MessageHandler) ListConversations(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	conversations, err := h.messages.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": conversations})
}

// ListMessages returns a page of a conversation's messages
func (h *MessageHandler) ListMessages(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	messages, err := h.messages.ListMessages(c.Request().Context(), userID, conversationID, page, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": messages})
}

// SendMessage stores a message and fans it out to the conversation room
func (h *MessageHandler) SendMessage(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message, err := h.messages.SendMessage(c.Request().Context(), userID, conversationID, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": message})
}

// MarkSeen marks the conversation's messages as seen by the caller
func (h *MessageHandler) MarkSeen(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.messages.MarkSeen(c.Request().Context(), userID, conversationID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
