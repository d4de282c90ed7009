package handler

import (
	"log/slog"
	"net/http"

	"github.com/bookscout/bookscout/internal/handler/dto"
	"github.com/bookscout/bookscout/internal/service"
)

// AccountHandler handles registration and login.
type AccountHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(users *service.UserService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		users:  users,
		logger: logger,
	}
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.logger.Info("login_failed", "username", creds.Username)
		handleServiceError(w, r, h.logger, err, codeInternal)
		return
	}

	h.logger.Info("login_succeeded", "user_id", user.ID)

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Login successful",
	})
}

// Register handles POST /register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err, codeStoreFailure)
		return
	}

	h.logger.Info("user_registered", "user_id", user.ID)

	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		UserID:  user.ID,
		Message: "User registered successfully",
	})
}

// readCredentials takes credentials from the JSON body, falling back to
// query parameters for fields the body leaves empty.
func readCredentials(r *http.Request) (dto.CredentialsRequest, error) {
	var req dto.CredentialsRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		return req, err
	}

	query := r.URL.Query()
	req.Username = firstNonEmpty(req.Username, query.Get("username"))
	req.Password = firstNonEmpty(req.Password, query.Get("password"))
	return req, nil
}
