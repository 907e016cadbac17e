package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/corpbank/corpbank/internal/platform/cache"
	"github.com/corpbank/corpbank/internal/shared"
)

// Options tunes token lifetime and lookup caching.
type Options struct {
	// TokenTTL bounds the lifetime of issued tokens. Zero issues tokens that never expire.
	TokenTTL time.Duration
	// CacheTTL bounds how long a token lookup is served from redis.
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	cache    *cache.Store
	tokenTTL time.Duration
	cacheTTL time.Duration
	logger   *slog.Logger
	lookups  singleflight.Group
	now      func() time.Time
}

// NewService constructs a new Service. store may be nil.
func NewService(repo Repository, store *cache.Store, opts Options) *Service {
	return &Service{
		repo:     repo,
		cache:    store,
		tokenTTL: opts.TokenTTL,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CreateUser hashes password and stores a new active user.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("auth: email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, email, string(hash))
}

// IssueToken exchanges credentials for the user's API token.
func (s *Service) IssueToken(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.TokenFor(ctx, user.ID)
}

// TokenFor returns the live token of userID, minting a fresh one when none exists or
// the current one has expired.
func (s *Service) TokenFor(ctx context.Context, userID int64) (*Token, error) {
	current, err := s.repo.TokenForUser(ctx, userID)
	switch {
	case err == nil && !current.Expired(s.now()):
		return current, nil
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	var expiresAt *time.Time
	if s.tokenTTL > 0 {
		t := s.now().Add(s.tokenTTL).UTC()
		expiresAt = &t
	}
	token, err := s.repo.ReplaceToken(ctx, userID, key, expiresAt)
	if err != nil {
		return nil, err
	}
	if current != nil {
		s.forget(ctx, current.Key)
	}
	return token, nil
}

// Lookup resolves an API key. Unknown and expired keys report
// shared.ErrInvalidCredentials; keys of an inactive owner report shared.ErrInactiveUser.
func (s *Service) Lookup(ctx context.Context, key string) (*Token, error) {
	if key == "" {
		return nil, shared.ErrInvalidCredentials
	}

	var cached Token
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		if cached.Expired(s.now()) {
			return nil, shared.ErrInvalidCredentials
		}
		if cached.UserActive {
			return &cached, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		shared.LoggerFrom(ctx, s.logger).Warn("token cache read", slog.Any("error", err))
	}

	token, err := s.findToken(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if token.Expired(s.now()) {
		return nil, shared.ErrInvalidCredentials
	}
	if !token.UserActive {
		return nil, shared.ErrInactiveUser
	}
	if err := s.cache.SetJSON(ctx, key, token, s.cacheTTLFor(*token)); err != nil {
		shared.LoggerFrom(ctx, s.logger).Warn("token cache write", slog.Any("error", err))
	}
	return token, nil
}

// findToken coalesces concurrent repository lookups of the same key. The shared query
// is detached from any single caller's cancellation; each caller still stops waiting
// when its own ctx is done.
func (s *Service) findToken(ctx context.Context, key string) (*Token, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.lookups.DoChan(key, func() (any, error) {
		return s.repo.FindToken(detached, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		token := *res.Val.(*Token)
		return &token, nil
	}
}

// PurgeExpired deletes expired tokens and evicts them from the lookup cache.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	keys, err := s.repo.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		if err := s.cache.Delete(ctx, keys...); err != nil {
			shared.LoggerFrom(ctx, s.logger).Warn("token cache evict", slog.Any("error", err))
		}
	}
	return len(keys), nil
}

// cacheTTLFor never lets a cached entry outlive the token itself.
func (s *Service) cacheTTLFor(token Token) time.Duration {
	ttl := s.cacheTTL
	if token.ExpiresAt != nil {
		if left := token.ExpiresAt.Sub(s.now()); left < ttl {
			ttl = left
		}
	}
	return ttl
}

func (s *Service) forget(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		shared.LoggerFrom(ctx, s.logger).Warn("token cache evict", slog.Any("error", err))
	}
}

// generateKey returns 40 hex characters from crypto/rand.
func generateKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
