package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"srushti-backend/internal/auth"
	"srushti-backend/internal/models"
	"srushti-backend/internal/services"
	"srushti-backend/pkg/httputil"
)

// ChatHandlers handles the streaming chat endpoint.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{chatService: chatService}
}

// HandleChat processes POST /chat. The response is a Server-Sent-Events
// stream; once streaming starts, failures are reported in-stream rather
// than via HTTP status codes.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ChatHandlers] Invalid chat request body: %v", err)
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" && len(req.Images) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "Message or images required")
		return
	}

	sse, err := httputil.NewSSEWriter(w)
	if err != nil {
		log.Printf("ERROR [ChatHandlers] %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	h.chatService.StreamChat(r.Context(), userID, req, sse)
}
