package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort          string
	DatabaseURL       string
	SessionSecret     string
	SessionExpiration time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	OpenRouterAPIKey string
	GroqAPIKey       string
	LangSearchAPIKey string

	SupabaseURL        string
	SupabaseServiceKey string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	port := getEnv("HTTP_PORT", "8080")
	dbURL := getEnv("DATABASE_URL", "") // No default, should fail if not set
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		log.Fatal("FATAL: SESSION_SECRET environment variable is not set.")
	}

	sessionExpStr := getEnv("SESSION_EXPIRATION_HOURS", "720") // Default 30 days
	sessionExpHours, err := strconv.Atoi(sessionExpStr)
	if err != nil {
		log.Printf("Warning: Invalid SESSION_EXPIRATION_HOURS '%s', using default 720h. Error: %v", sessionExpStr, err)
		sessionExpHours = 720
	}

	cfg := &Config{
		HTTPPort:          port,
		DatabaseURL:       dbURL,
		SessionSecret:     sessionSecret,
		SessionExpiration: time.Hour * time.Duration(sessionExpHours),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectURL:   getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),

		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
		LangSearchAPIKey: getEnv("LANGSEARCH_API_KEY", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Println("Warning: GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not set; Google login will fail.")
	}
	if cfg.LangSearchAPIKey == "" {
		log.Println("Warning: LANGSEARCH_API_KEY not set; web search will be disabled.")
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, SessionExp=%s", cfg.HTTPPort, cfg.SessionExpiration)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
