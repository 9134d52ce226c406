package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"srushti-backend/internal/auth"
	"srushti-backend/internal/config"
	"srushti-backend/internal/models"
	"srushti-backend/internal/store"
)

// Google OAuth 2.0 endpoints. Fields on AuthService so tests can point them
// at local servers.
const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// AuthService handles the Google OAuth code flow and session issuance.
type AuthService struct {
	store store.Store
	cfg   *config.Config

	httpClient  *http.Client
	authURL     string
	tokenURL    string
	userinfoURL string
}

// NewAuthService creates a new AuthService. A nil httpClient gets a
// 15s-timeout default.
func NewAuthService(st store.Store, cfg *config.Config, httpClient *http.Client) *AuthService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &AuthService{
		store:       st,
		cfg:         cfg,
		httpClient:  httpClient,
		authURL:     googleAuthURL,
		tokenURL:    googleTokenURL,
		userinfoURL: googleUserinfoURL,
	}
}

// AuthCodeURL builds the Google consent-screen redirect URL.
func (s *AuthService) AuthCodeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", s.cfg.GoogleClientID)
	params.Set("redirect_uri", s.cfg.OAuthRedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("state", state)
	return s.authURL + "?" + params.Encode()
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type googleUserinfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// HandleGoogleCallback exchanges the authorization code, fetches the user's
// profile, upserts the user row, and returns the user plus a signed session
// token.
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code string) (*models.User, string, error) {
	accessToken, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("google code exchange failed: %w", err)
	}

	info, err := s.fetchUserinfo(ctx, accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("google userinfo fetch failed: %w", err)
	}
	if info.Sub == "" {
		return nil, "", fmt.Errorf("google userinfo response carried no subject id")
	}

	user := &models.User{
		ID:        info.Sub,
		Email:     info.Email,
		FullName:  info.Name,
		AvatarURL: info.Picture,
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to upsert user: %w", err)
	}

	token, err := auth.NewSessionToken(user, s.cfg.SessionSecret, s.cfg.SessionExpiration)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	log.Printf("[AuthService] User %s logged in via Google", user.ID)
	return user, token, nil
}

// GetUser fetches a user row by Google subject id. Propagates
// store.ErrNotFound.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

func (s *AuthService) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", s.cfg.GoogleClientID)
	form.Set("client_secret", s.cfg.GoogleClientSecret)
	form.Set("redirect_uri", s.cfg.OAuthRedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if decoded.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}
	return decoded.AccessToken, nil
}

func (s *AuthService) fetchUserinfo(ctx context.Context, accessToken string) (*googleUserinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &info, nil
}
