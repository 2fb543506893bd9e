package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/shopsync/internal/auth"
	domainerrors "github.com/dukerupert/shopsync/internal/errors"
	"github.com/dukerupert/shopsync/internal/model"
	"github.com/dukerupert/shopsync/internal/store"
	"github.com/dukerupert/shopsync/internal/validation"
)

type AuthHandler struct {
	users     *store.UserStore
	tokens    *auth.Tokens
	validator *validation.Validator
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tokens *auth.Tokens, v *validation.Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, tokens: tokens, validator: v, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges an email and password for a bearer token. Unknown emails
// and wrong passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validator.Validate(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, domainerrors.Wrap(err, domainerrors.CodeInternal, "login lookup"))
		return
	}
	if user == nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, h.logger, domainerrors.Unauthorized("invalid email or password"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, h.logger, domainerrors.Wrap(err, domainerrors.CodeInternal, "issue token"))
		return
	}

	h.logger.Info("login", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}
