package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"srushti-backend/internal/models"
	"srushti-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const createConversation = `
INSERT INTO conversations (user_id, title)
VALUES ($1, $2)
RETURNING id, user_id, title, created_at, updated_at`

// CreateConversation inserts a new conversation for the user and returns it.
func (s *PostgresStore) CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error) {
	log.Printf("[PostgresStore] CreateConversation called for user %s", userID)

	conv := &models.Conversation{}
	err := s.db.QueryRow(ctx, createConversation, userID, title).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateConversation: Failed insert for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error creating conversation: %w", err)
	}

	log.Printf("[PostgresStore] CreateConversation: Created conversation %s for user %s", conv.ID, userID)
	return conv, nil
}

// GetConversationByID retrieves a conversation scoped to its owner.
// Returns store.ErrNotFound when missing or owned by someone else.
func (s *PostgresStore) GetConversationByID(ctx context.Context, id uuid.UUID, userID string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`

	conv := &models.Conversation{}
	err := s.db.QueryRow(ctx, query, id, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetConversationByID: Failed query for %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}

	return conv, nil
}

// ListConversationsByUser returns the user's conversations, most recently
// updated first.
func (s *PostgresStore) ListConversationsByUser(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListConversationsByUser: Failed query for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating conversations: %w", err)
	}

	return conversations, nil
}

// ListMessagesByConversation returns a conversation's messages oldest first.
func (s *PostgresStore) ListMessagesByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender, content, reasoning, sources, has_image, image_urls, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, conversationID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListMessagesByConversation: Failed query for %s: %v", conversationID, err)
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Sender,
			&msg.Content,
			&msg.Reasoning,
			&msg.Sources,
			&msg.HasImage,
			&msg.ImageURLs,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}

	return messages, nil
}

const insertMessage = `
INSERT INTO messages (conversation_id, sender, content, reasoning, sources, has_image, image_urls)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// InsertMessagePair writes the user turn and the assistant turn in one
// transaction and bumps the conversation's updated_at. A turn is only ever
// written whole; there are no partial turns in the database.
func (s *PostgresStore) InsertMessagePair(ctx context.Context, arg store.InsertMessagePairParams) error {
	log.Printf("[PostgresStore] InsertMessagePair called for conversation %s", arg.ConversationID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, record := range []store.MessageRecord{arg.UserMessage, arg.AssistantMessage} {
		if _, err := tx.Exec(ctx, insertMessage,
			arg.ConversationID,
			record.Sender,
			record.Content,
			record.Reasoning,
			record.Sources,
			record.HasImage,
			record.ImageURLs,
		); err != nil {
			log.Printf("ERROR [PostgresStore] InsertMessagePair: Failed insert (%s) for conversation %s: %v", record.Sender, arg.ConversationID, err)
			return fmt.Errorf("database error inserting %s message: %w", record.Sender, err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, arg.ConversationID); err != nil {
		return fmt.Errorf("database error touching conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing message pair: %w", err)
	}

	log.Printf("[PostgresStore] InsertMessagePair: Saved turn for conversation %s", arg.ConversationID)
	return nil
}
