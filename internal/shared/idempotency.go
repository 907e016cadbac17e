package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/corpbank/corpbank/internal/platform/httpx"
)

// IdempotencyHeader carries the client supplied key of a create request.
const IdempotencyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLength bounds the raw header value; the stored key also carries the
// actor id and must fit idempotency_keys.key.
const MaxIdempotencyKeyLength = 255

// IdempotencyStore persists processed keys.
type IdempotencyStore struct {
	db     Execer
	now    func() time.Time
	logger *slog.Logger
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(db Execer, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now, logger: logger}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = fmt.Errorf("idempotent request already processed: %w", httpx.ErrDuplicate)

// CheckAndInsert ensures key uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, s.now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := s.now().Add(-olderThan).UTC()
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND module = $2`, key, module)
	return err
}

// Middleware guards POST requests carrying an Idempotency-Key header. A replayed key
// is answered with 409; a request that fails releases its key so it can be retried.
// Keys are scoped per actor and path.
func (s *IdempotencyStore) Middleware(next http.Handler) http.Handler {
	if s == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if r.Method != http.MethodPost || raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(raw) > MaxIdempotencyKeyLength {
			httpx.ValidationProblem(w, map[string][]string{
				IdempotencyHeader: {fmt.Sprintf("Ensure this field has no more than %d characters.", MaxIdempotencyKeyLength)},
			})
			return
		}
		ctx := r.Context()
		actor, _ := ActorFromContext(ctx)
		key := fmt.Sprintf("%d:%s", actor, raw)
		module := strings.Trim(r.URL.Path, "/")

		if err := s.CheckAndInsert(ctx, key, module); err != nil {
			if !errors.Is(err, ErrIdempotencyConflict) {
				LoggerFrom(ctx, s.logger).Error("idempotency check failed", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() >= http.StatusBadRequest {
			if err := s.Delete(context.WithoutCancel(ctx), key, module); err != nil {
				LoggerFrom(ctx, s.logger).Warn("idempotency release failed", slog.Any("error", err))
			}
		}
	})
}
