package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"srushti-backend/internal/auth"
	"srushti-backend/pkg/httputil"

	"github.com/golang-jwt/jwt/v5"
)

// sessionCookieName mirrors handlers.SessionCookieName; duplicated here to
// avoid an import cycle between api and handlers.
const sessionCookieName = "session"

// SessionAuthMiddleware verifies the session token from the session cookie
// (or, for non-browser clients, a bearer Authorization header). If valid, it
// injects the user id and email into the request context.
func SessionAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ""
			if cookie, err := r.Cookie(sessionCookieName); err == nil {
				tokenString = cookie.Value
			}
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = parts[1]
				}
			}
			if tokenString == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := auth.ParseSessionToken(tokenString, jwtSecret)
			if err != nil {
				log.Printf("Auth Middleware: Error parsing session token: %v", err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					httputil.RespondError(w, http.StatusUnauthorized, "Session has expired")
				} else {
					httputil.RespondError(w, http.StatusUnauthorized, "Invalid session")
				}
				return
			}

			if claims.UserID == "" {
				log.Println("Auth Middleware: Valid token with empty user id")
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid session claims")
				return
			}

			ctx := context.WithValue(r.Context(), auth.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, auth.UserEmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
