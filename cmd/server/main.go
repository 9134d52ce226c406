package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"srushti-backend/internal/api"
	"srushti-backend/internal/config"
	"srushti-backend/internal/handlers"
	"srushti-backend/internal/llm"
	"srushti-backend/internal/search"
	"srushti-backend/internal/services"
	"srushti-backend/internal/storage"
	"srushti-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting Srushti Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Providers, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	// --- LLM Provider Registry ---
	openRouter := llm.NewOpenRouterProvider("", cfg.OpenRouterAPIKey, nil)
	groq := llm.NewGroqProvider("", cfg.GroqAPIKey)
	registry := llm.NewRegistry(openRouter)
	registry.Register(llm.MatchExact(llm.GroqModelGPTOSS120B), groq)
	log.Println("LLM provider registry initialized.")

	// --- External Collaborators ---
	searchClient := search.NewClient("", cfg.LangSearchAPIKey, nil)
	storageClient := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
	log.Println("Search and storage clients initialized.")

	// --- Services ---
	authService := services.NewAuthService(pgStore, cfg, nil)
	chatService := services.NewChatService(pgStore, registry, searchClient, storageClient)
	conversationService := services.NewConversationService(pgStore)
	log.Println("Services initialized.")

	// --- Handlers ---
	authHandler := handlers.NewAuthHandlers(authService, cfg)
	chatHandler := handlers.NewChatHandlers(chatService)
	uploadHandler := handlers.NewUploadHandlers()
	conversationHandler := handlers.NewConversationHandlers(conversationService)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		AuthHandler:         authHandler,
		ChatHandler:         chatHandler,
		UploadHandler:       uploadHandler,
		ConversationHandler: conversationHandler,
		Config:              cfg,
	})
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// WriteTimeout stays unset: /chat streams for as long as the two
		// upstream passes take. Upstream clients carry their own timeouts.
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
