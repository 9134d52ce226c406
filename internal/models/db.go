package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// --- Database Models ---
// These structs map directly to database table rows.

// User represents a row in the 'users' table. The ID is the Google account
// subject (`sub` claim), not a UUID we mint ourselves.
type User struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Conversation represents a row in the 'conversations' table.
type Conversation struct {
	ID        uuid.UUID
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a row in the 'messages' table. Sources is raw JSONB:
// a marshaled []Source for assistant messages, NULL otherwise.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Sender         string
	Content        string
	Reasoning      *string
	Sources        json.RawMessage
	HasImage       bool
	ImageURLs      []string
	CreatedAt      time.Time
}
