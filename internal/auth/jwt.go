package auth

import (
	"fmt"
	"log"
	"time"

	"srushti-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// --- JWT Session Claims ---

// SessionClaims includes standard JWT claims plus the user profile fields
// the UI needs without a database round trip. UserID is the Google subject.
type SessionClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// NewSessionToken generates the signed session token set as a cookie after a
// successful Google login.
func NewSessionToken(user *models.User, jwtSecret string, expiration time.Duration) (string, error) {
	claims := SessionClaims{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.FullName,
		Picture: user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "srushti-backend",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("Error signing session token for UserID %s: %v", user.ID, err)
		return "", err
	}

	return signedToken, nil
}

// ParseSessionToken validates a session token and returns its claims.
func ParseSessionToken(tokenString, jwtSecret string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
