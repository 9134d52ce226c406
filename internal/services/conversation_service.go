package services

import (
	"context"
	"encoding/json"
	"fmt"

	"srushti-backend/internal/models"
	"srushti-backend/internal/store"

	"github.com/google/uuid"
)

// ConversationService backs the sidebar and history views.
type ConversationService struct {
	store store.Store
}

// NewConversationService creates a new ConversationService.
func NewConversationService(st store.Store) *ConversationService {
	return &ConversationService{store: st}
}

// ListConversations returns the user's conversations, most recent first.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) (*models.ListConversationsResponse, error) {
	conversations, err := s.store.ListConversationsByUser(ctx, userID, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	resp := &models.ListConversationsResponse{Conversations: make([]models.ConversationResponse, 0, len(conversations))}
	for _, conv := range conversations {
		resp.Conversations = append(resp.Conversations, models.ConversationResponse{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	return resp, nil
}

// ListMessages returns a conversation's messages oldest first, after
// checking the conversation belongs to the user. Returns store.ErrNotFound
// for missing or foreign conversations.
func (s *ConversationService) ListMessages(ctx context.Context, userID string, conversationID uuid.UUID) (*models.ListMessagesResponse, error) {
	if _, err := s.store.GetConversationByID(ctx, conversationID, userID); err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	messages, err := s.store.ListMessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	resp := &models.ListMessagesResponse{Messages: make([]models.MessageResponse, 0, len(messages))}
	for _, msg := range messages {
		item := models.MessageResponse{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			Reasoning: msg.Reasoning,
			HasImage:  msg.HasImage,
			ImageURLs: msg.ImageURLs,
			CreatedAt: msg.CreatedAt,
		}
		if len(msg.Sources) > 0 {
			var sources []models.Source
			if err := json.Unmarshal(msg.Sources, &sources); err == nil {
				item.Sources = sources
			}
		}
		resp.Messages = append(resp.Messages, item)
	}
	return resp, nil
}
