package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"srushti-backend/internal/auth"
	"srushti-backend/internal/config"
	"srushti-backend/internal/models"
	"srushti-backend/internal/services"
	"srushti-backend/internal/store"
	"srushti-backend/pkg/httputil"

	"github.com/google/uuid"
)

const (
	// SessionCookieName holds the signed session token after login.
	SessionCookieName = "session"
	stateCookieName   = "oauth_state"
)

// AuthHandlers handles Google login, logout, and the current-user endpoint.
type AuthHandlers struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandlers creates a new AuthHandlers.
func NewAuthHandlers(authService *services.AuthService, cfg *config.Config) *AuthHandlers {
	return &AuthHandlers{authService: authService, cfg: cfg}
}

// HandleGoogleLogin processes GET /auth/google: sets a short-lived state
// cookie and redirects to Google's consent screen.
func (h *AuthHandlers) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.authService.AuthCodeURL(state), http.StatusFound)
}

// HandleGoogleCallback processes GET /auth/google/callback: verifies the
// state, exchanges the code, and sets the session cookie.
func (h *AuthHandlers) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		log.Printf("[AuthHandlers] OAuth state mismatch from %s", r.RemoteAddr)
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid OAuth state")
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	_, token, err := h.authService.HandleGoogleCallback(r.Context(), code)
	if err != nil {
		log.Printf("ERROR [AuthHandlers] Google callback failed: %v", err)
		httputil.RespondError(w, http.StatusUnauthorized, "Google login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionExpiration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout processes POST /logout by clearing the session cookie.
func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe processes GET /me, returning the authenticated user's profile.
func (h *AuthHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ERROR [AuthHandlers] Failed to fetch user %s: %v", userID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.FullName,
		AvatarURL: user.AvatarURL,
	})
}
