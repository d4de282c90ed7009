package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bookscout/bookscout/internal/middleware"
	"github.com/bookscout/bookscout/internal/service"
)

// Codes for unexpected failures.
const (
	codeInternal     = "INTERNAL_ERROR"
	codeStoreFailure = "STORE_FAILURE"
)

// handleServiceError maps service errors to HTTP responses. Unknown errors
// are logged and answered 500 with fallbackCode.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallbackCode string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid username or password")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "USERNAME_TAKEN", "username already exists")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, service.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found")
	case service.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		logger.Error("internal_error",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, fallbackCode, "an internal error occurred")
	}
}
