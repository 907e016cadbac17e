package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/shared"
)

const keyword = "Token"

// Middleware rejects requests without a valid "Authorization: Token <key>" header
// and stores the token owner as the request actor.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, detail := parseAuthorization(r.Header.Get("Authorization"))
		if detail != "" {
			httpx.Unauthorized(w, detail)
			return
		}
		token, err := s.Lookup(r.Context(), key)
		if err != nil {
			switch {
			case errors.Is(err, shared.ErrInvalidCredentials):
				httpx.Unauthorized(w, "Invalid token.")
				return
			case errors.Is(err, shared.ErrInactiveUser):
				httpx.Unauthorized(w, "User inactive or deleted.")
				return
			}
			shared.LoggerFrom(r.Context(), s.logger).Error("token lookup failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}

		ctx := shared.ContextWithActor(r.Context(), token.UserID)
		logger := shared.LoggerFrom(ctx, s.logger).With(slog.Int64("user_id", token.UserID))
		ctx = shared.ContextWithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseAuthorization extracts the key from the header value, or returns the detail
// message of the 401 response.
func parseAuthorization(header string) (string, string) {
	parts := strings.Fields(header)
	if len(parts) == 0 || !strings.EqualFold(parts[0], keyword) {
		return "", "Authentication credentials were not provided."
	}
	switch len(parts) {
	case 1:
		return "", "Invalid token header. No credentials provided."
	case 2:
		return parts[1], ""
	default:
		return "", "Invalid token header. Token string should not contain spaces."
	}
}
