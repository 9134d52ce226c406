package store

import (
	"context"
	"encoding/json"
	"errors"

	"srushti-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// MessageRecord carries the fields of one message row to insert. Reasoning
// and Sources are nil for user messages; ImageURLs is nil for assistant
// messages.
type MessageRecord struct {
	Sender    string
	Content   string
	Reasoning *string
	Sources   json.RawMessage
	HasImage  bool
	ImageURLs []string
}

// InsertMessagePairParams contains the user turn and the resulting assistant
// turn. The pair is written in a single transaction: either both rows land
// or neither does.
type InsertMessagePairParams struct {
	ConversationID   uuid.UUID
	UserMessage      MessageRecord
	AssistantMessage MessageRecord
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Conversation operations
	CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID, userID string) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string, limit int) ([]models.Conversation, error)

	// Message operations
	ListMessagesByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	InsertMessagePair(ctx context.Context, arg InsertMessagePairParams) error
}
