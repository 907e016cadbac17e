package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpbank/corpbank/internal/shared"
)

// ErrEmailTaken reports a duplicate user email.
var ErrEmailTaken = errors.New("auth: email already registered")

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	// FindToken returns the token with key when its owner is still active.
	FindToken(ctx context.Context, key string) (*Token, error)
	TokenForUser(ctx context.Context, userID int64) (*Token, error)
	// ReplaceToken stores key as the single token of userID.
	ReplaceToken(ctx context.Context, userID int64, key string, expiresAt *time.Time) (*Token, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return user, nil
}

// CreateUser inserts an active user.
func (r *PGRepository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, is_active)
		VALUES ($1, $2, TRUE)
		RETURNING id, email, password_hash, is_active, created_at, updated_at`, email, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return user, nil
}

// FindToken looks up an API token joined with its owner.
func (r *PGRepository) FindToken(ctx context.Context, key string) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT t.key, t.user_id, u.email, t.created_at, t.expires_at, u.is_active
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.key = $1`, key)
	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find token: %w", err)
	}
	return token, nil
}

// TokenForUser returns the current token of userID.
func (r *PGRepository) TokenForUser(ctx context.Context, userID int64) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT t.key, t.user_id, u.email, t.created_at, t.expires_at, u.is_active
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.user_id = $1`, userID)
	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: token for user: %w", err)
	}
	return token, nil
}

// ReplaceToken upserts the token row of userID.
func (r *PGRepository) ReplaceToken(ctx context.Context, userID int64, key string, expiresAt *time.Time) (*Token, error) {
	expires := pgtype.Timestamptz{}
	if expiresAt != nil {
		expires = pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true}
	}
	row := r.pool.QueryRow(ctx, `
		WITH upserted AS (
			INSERT INTO api_tokens (key, user_id, created_at, expires_at)
			VALUES ($1, $2, NOW(), $3)
			ON CONFLICT (user_id) DO UPDATE
			SET key = EXCLUDED.key, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
			RETURNING key, user_id, created_at, expires_at
		)
		SELECT t.key, t.user_id, u.email, t.created_at, t.expires_at, u.is_active
		FROM upserted t JOIN users u ON u.id = t.user_id`, key, userID, expires)
	token, err := scanToken(row)
	if err != nil {
		return nil, fmt.Errorf("auth: replace token: %w", err)
	}
	return token, nil
}

// DeleteExpiredTokens removes tokens whose expiry is not after now and returns their keys.
func (r *PGRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM api_tokens
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		RETURNING key`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("auth: purge tokens: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("auth: purge tokens scan: %w", err)
	}
	return keys, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user      User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}

func scanToken(row pgx.Row) (*Token, error) {
	var (
		token     Token
		createdAt pgtype.Timestamptz
		expiresAt pgtype.Timestamptz
	)
	if err := row.Scan(&token.Key, &token.UserID, &token.Email, &createdAt, &expiresAt, &token.UserActive); err != nil {
		return nil, err
	}
	token.CreatedAt = createdAt.Time
	if expiresAt.Valid {
		t := expiresAt.Time
		token.ExpiresAt = &t
	}
	return &token, nil
}

var _ Repository = (*PGRepository)(nil)
