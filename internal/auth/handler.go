package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/token", h.obtainToken)
}

type tokenForm struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type credentialError struct {
	fields map[string][]string
}

func (e *credentialError) Error() string                    { return "auth: invalid token request" }
func (e *credentialError) FieldErrors() map[string][]string { return e.fields }
func (e *credentialError) Unwrap() error                    { return httpx.ErrValidation }

func (h *Handler) obtainToken(w http.ResponseWriter, r *http.Request) {
	var form tokenForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(form); err != nil {
		fields := map[string][]string{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				name := strings.ToLower(fe.Field())
				fields[name] = append(fields[name], "This field is required.")
			}
		}
		httpx.RespondError(w, &credentialError{fields: fields})
		return
	}

	token, err := h.service.IssueToken(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.RespondError(w, &credentialError{fields: map[string][]string{
				"non_field_errors": {"Unable to log in with provided credentials."},
			}})
			return
		}
		shared.LoggerFrom(r.Context(), h.logger).Error("issue token failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: token.Key})
}
