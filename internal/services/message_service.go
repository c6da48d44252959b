package services

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/events"
	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/repositories"
)

// SeenReceipt is the payload broadcast to a conversation room when a
// participant marks messages as seen.
type SeenReceipt struct {
	Conversation primitive.ObjectID `json:"conversation"`
	SeenBy       primitive.ObjectID `json:"seen_by"`
	Count        int64              `json:"count"`
}

// MessageService handles direct-message conversations. Sending a
// message broadcasts it to the conversation room and notifies the
// other participants; both are best-effort on top of the stored
// message.
type MessageService struct {
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	notifications *NotificationService
	bus           *events.Bus
	log           zerolog.Logger
}

// NewMessageService creates a new MessageService
func NewMessageService(
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	notifications *NotificationService,
	bus *events.Bus,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		messages:      messages,
		users:         users,
		notifications: notifications,
		bus:           bus,
		log:           log,
	}
}

// OpenConversation returns the conversation with exactly the given
// participants, creating it if none exists. The caller is always
// included.
func (s *MessageService) OpenConversation(ctx context.Context, userID primitive.ObjectID, participantIDs []primitive.ObjectID) (*models.Conversation, error) {
	seen := map[primitive.ObjectID]struct{}{userID: {}}
	participants := []primitive.ObjectID{userID}
	for _, p := range participantIDs {
		if _, dup := seen[p]; dup {
			continue
		}
		if _, err := s.users.GetUserByID(ctx, p); err != nil {
			return nil, err
		}
		seen[p] = struct{}{}
		participants = append(participants, p)
	}

	existing, err := s.messages.FindConversationByParticipants(ctx, participants)
	if err == nil {
		return existing, nil
	}
	if err != models.ErrConversationNotFound {
		return nil, err
	}

	conversation := &models.Conversation{Participants: participants}
	if err := s.messages.CreateConversation(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// ListConversations returns the user's conversations, most recently
// active first.
func (s *MessageService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	return s.messages.ListConversations(ctx, userID)
}

// SendMessage stores a message and fans it out: the message goes to
// the conversation room, a message notification to every other
// participant.
func (s *MessageService) SendMessage(ctx context.Context, senderID, conversationID primitive.ObjectID, text string) (*models.Message, error) {
	conversation, err := s.messages.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, models.ErrNotParticipant
	}

	message := &models.Message{
		Conversation: conversationID,
		Sender:       senderID,
		Text:         text,
	}
	if err := s.messages.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	if err := s.messages.TouchConversation(ctx, conversationID, message.CreatedAt); err != nil {
		s.log.Warn().Err(err).Str("conversation", conversationID.Hex()).Msg("touch conversation failed")
	}

	s.bus.Publish(events.EventMessage, events.MessageEvent{
		RoomID:  conversationID.Hex(),
		Payload: message,
	})

	for _, p := range conversation.Participants {
		if p == senderID {
			continue
		}
		s.notifications.NotifyBestEffort(ctx, &models.Notification{
			User:  p,
			Kind:  models.NotificationMessage,
			Actor: senderID,
			Meta:  map[string]any{"conversation": conversationID.Hex()},
		})
	}

	return message, nil
}

// ListMessages returns a page of conversation messages for a
// participant.
func (s *MessageService) ListMessages(ctx context.Context, userID, conversationID primitive.ObjectID, page, limit int64) ([]models.Message, error) {
	conversation, err := s.messages.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, models.ErrNotParticipant
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if page < 0 {
		page = 0
	}
	return s.messages.ListMessages(ctx, conversationID, page, limit)
}

// MarkSeen marks all messages the reader did not send as seen and
// broadcasts a receipt to the conversation room.
func (s *MessageService) MarkSeen(ctx context.Context, userID, conversationID primitive.ObjectID) error {
	conversation, err := s.messages.GetConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return models.ErrNotParticipant
	}

	count, err := s.messages.MarkSeen(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		s.bus.Publish(events.EventMessage, events.MessageEvent{
			RoomID: conversationID.Hex(),
			Payload: SeenReceipt{
				Conversation: conversationID,
				SeenBy:       userID,
				Count:        count,
			},
		})
	}
	return nil
}
