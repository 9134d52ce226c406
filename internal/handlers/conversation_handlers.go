package handlers

import (
	"errors"
	"log"
	"net/http"

	"srushti-backend/internal/auth"
	"srushti-backend/internal/services"
	"srushti-backend/internal/store"
	"srushti-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ConversationHandlers backs the sidebar and history listing endpoints.
type ConversationHandlers struct {
	conversationService *services.ConversationService
}

// NewConversationHandlers creates a new ConversationHandlers.
func NewConversationHandlers(conversationService *services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{conversationService: conversationService}
}

// HandleListConversations processes GET /conversations.
func (h *ConversationHandlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp, err := h.conversationService.ListConversations(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR [ConversationHandlers] Failed to list conversations for %s: %v", userID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListMessages processes GET /conversations/{conversationID}/messages.
func (h *ConversationHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	resp, err := h.conversationService.ListMessages(r.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("ERROR [ConversationHandlers] Failed to list messages for %s: %v", conversationID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
