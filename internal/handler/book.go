package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bookscout/bookscout/internal/handler/dto"
	"github.com/bookscout/bookscout/internal/service"
)

// BookHandler handles lookups, searches and history.
type BookHandler struct {
	books  *service.BookService
	logger *slog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books *service.BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger,
	}
}

// Lookup handles GET /books?title=. Nothing is recorded.
func (h *BookHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.LookupBook(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeInternal)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookResponse(*book))
}

// Search handles POST /search. Title and user id come from the JSON body or
// from ?title= and ?userId= (also ?user_id=). Without a user id the search
// is recorded anonymously.
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	query := r.URL.Query()
	title := firstNonEmpty(req.Title, query.Get("title"))
	userID := firstNonEmpty(req.UserID, userIDParam(r))

	book, err := h.books.SearchAndSave(r.Context(), title, userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeStoreFailure)
		return
	}

	h.logger.Info("search_recorded",
		"user_id", userID,
		"title", title,
	)

	writeJSON(w, http.StatusOK, dto.ToBookResponse(*book))
}

// History handles GET /history?userId=.
func (h *BookHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.books.History(r.Context(), userIDParam(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeStoreFailure)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToHistoryEntries(records))
}

// Trending handles GET /searches/trending?limit=. Out-of-range limits are
// clamped by the service, unparseable ones fall back to the default.
func (h *BookHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	titles, err := h.books.Trending(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeInternal)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTrendingEntries(titles))
}

// userIDParam accepts both spellings used by clients.
func userIDParam(r *http.Request) string {
	query := r.URL.Query()
	return firstNonEmpty(query.Get("userId"), query.Get("user_id"))
}
