package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bookscout/bookscout/internal/handler/dto"
	"github.com/bookscout/bookscout/internal/service"
)

const auditTimeout = 10 * time.Second

// AuditHandler exposes full user and search listings for inspection.
// It is only mounted when AUDIT_ENABLED is set.
type AuditHandler struct {
	users  *service.UserService
	books  *service.BookService
	logger *slog.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(users *service.UserService, books *service.BookService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		users:  users,
		books:  books,
		logger: logger,
	}
}

// Users handles GET /data/users. Credentials are never included.
func (h *AuditHandler) Users(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), auditTimeout)
	defer cancel()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeStoreFailure)
		return
	}

	h.logger.Info("audit_users_listed", "count", len(users))
	writeJSON(w, http.StatusOK, dto.ToUserResponses(users))
}

// Searches handles GET /data/searches, oldest first.
func (h *AuditHandler) Searches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), auditTimeout)
	defer cancel()

	records, err := h.books.ListSearches(ctx)
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeStoreFailure)
		return
	}

	h.logger.Info("audit_searches_listed", "count", len(records))
	writeJSON(w, http.StatusOK, dto.ToHistoryEntries(records))
}
