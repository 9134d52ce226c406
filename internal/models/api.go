package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// ChatMessage is one prior turn in the client-supplied history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageAttachment is a single image prepared by the upload endpoint and
// passed back by the client alongside the chat message. Data is base64.
type ImageAttachment struct {
	Data     string `json:"image_data"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// ChatRequest defines the expected body for the /chat endpoint.
// It is immutable for the duration of one request.
type ChatRequest struct {
	Message        string            `json:"message"`
	History        []ChatMessage     `json:"history"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Model          string            `json:"model"`
	ForceWebSearch bool              `json:"force_web_search"`
	Images         []ImageAttachment `json:"images_data"`
}

// --- Response Structs ---

// Source is one web-search citation shown to the user.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewConversationEvent is the payload of the `new_conversation` SSE event,
// emitted before any model output when the request carried no conversation id.
type NewConversationEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UserResponse defines the user information returned by the API.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ConversationResponse is one conversation in the sidebar listing.
type ConversationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListConversationsResponse wraps the conversation listing.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// MessageResponse is one persisted message returned when loading a conversation.
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Reasoning *string   `json:"reasoning,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	HasImage  bool      `json:"has_image"`
	ImageURLs []string  `json:"image_urls,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMessagesResponse wraps the message listing for one conversation.
type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// UploadImagesResponse defines the body returned by /upload_images.
type UploadImagesResponse struct {
	Success bool              `json:"success"`
	Images  []ImageAttachment `json:"images"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
