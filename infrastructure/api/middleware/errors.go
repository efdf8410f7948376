package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/unifiedsync/syncd/application/handler"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/domain/unification"
	"github.com/unifiedsync/syncd/internal/database"
)

// Sentinel errors for the API layer.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrServer         = errors.New("server error")
)

// APIError is an error with an HTTP status.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError is returned when a request carries no valid key.
type AuthenticationError struct {
	reason string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{reason: reason}
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.reason
}

// Is matches ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// ServerError is an upstream or internal failure with a status code.
type ServerError struct {
	status  int
	message string
}

// NewServerError creates a ServerError.
func NewServerError(status int, message string) *ServerError {
	return &ServerError{status: status, message: message}
}

// StatusCode returns the HTTP status.
func (e *ServerError) StatusCode() int { return e.status }

// Message returns the message.
func (e *ServerError) Message() string { return e.message }

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.status, e.message)
}

// Is matches ErrServer.
func (e *ServerError) Is(target error) bool { return target == ErrServer }

// ErrorResponse is the JSON body of an error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an error to an HTTP status.
func StatusFor(err error) int {
	var apiErr *APIError
	var serverErr *ServerError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code()
	case errors.As(err, &serverErr):
		return serverErr.StatusCode()
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tenant.ErrNoConnection):
		return http.StatusConflict
	case errors.Is(err, entity.ErrUnknownType),
		errors.Is(err, entity.ErrInvalidReference),
		errors.Is(err, entity.ErrMissingRemoteID),
		errors.Is(err, service.ErrInvalidCursor),
		errors.Is(err, handler.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrMissingCapability), errors.Is(err, unification.ErrNoRuleSet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPushRejected):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError writes err as JSON with the status StatusFor picks.
// Server errors are logged and their detail hidden.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := StatusFor(err)
	message := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message()
	}

	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		message = http.StatusText(status)
	}

	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
