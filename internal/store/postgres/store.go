package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"srushti-backend/internal/models"
	"srushti-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertUser inserts a user row keyed by the Google subject id, updating
// profile fields on conflict. Called from the OAuth callback on every login.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) error {
	log.Printf("[PostgresStore] UpsertUser called for: %s (UserID: %s)", user.Email, user.ID)
	query := `
		INSERT INTO users (id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = EXCLUDED.full_name,
		    avatar_url = EXCLUDED.avatar_url,
		    updated_at = NOW()`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.AvatarURL,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Printf("ERROR [PostgresStore] UpsertUser: PostgreSQL error for %s: Code=%s, Message=%s", user.Email, pgErr.Code, pgErr.Message)
		} else {
			log.Printf("ERROR [PostgresStore] UpsertUser: Failed to execute upsert for %s: %v", user.Email, err)
		}
		return fmt.Errorf("database error upserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their Google subject id.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, full_name, avatar_url, created_at, updated_at
		FROM users
		WHERE id = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByID: Failed to query/scan user %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching user by id: %w", err)
	}

	return user, nil
}
