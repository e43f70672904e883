package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/asset-vault/internal/auth"
	"github.com/crucial707/asset-vault/internal/metrics"
	"github.com/crucial707/asset-vault/internal/middleware"
	"github.com/crucial707/asset-vault/internal/repo"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Users  *repo.UserRepo
	Audit  *repo.AuditRepo
	Hasher *auth.PasswordHasher
	Tokens *auth.TokenService
	// TTL is the lifetime of tokens issued by Token.
	TTL time.Duration
	Log zerolog.Logger
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type registerResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// ==========================
// Register (POST /users/)
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input registerRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if middleware.BodyTooLarge(err) {
			JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if fields, ok := validateStruct(input); !ok {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Username is checked up front; the unique constraint still decides races.
	_, err := h.Users.FindByUsername(ctx, input.Username)
	switch {
	case err == nil:
		JSONError(w, "username already registered", http.StatusConflict)
		return
	case !errors.Is(err, repo.ErrNotFound):
		h.Log.Error().Err(err).Str("username", input.Username).Msg("register: lookup failed")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	digest, err := h.Hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			JSONValidationError(w, "validation failed",
				map[string]string{"password": "password must be at most 72 bytes"}, http.StatusBadRequest)
			return
		}
		h.Log.Error().Err(err).Msg("register: hash password")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	user, err := h.Users.Create(ctx, input.Username, input.Email, digest, input.Role)
	switch {
	case errors.Is(err, repo.ErrUserExists):
		JSONError(w, "username already registered", http.StatusConflict)
		return
	case errors.Is(err, repo.ErrEmailExists):
		JSONError(w, "email already registered", http.StatusConflict)
		return
	case errors.Is(err, repo.ErrInvalidRole):
		JSONValidationError(w, "validation failed",
			map[string]string{"role": "role must be one of: user admin"}, http.StatusBadRequest)
		return
	case err != nil:
		h.Log.Error().Err(err).Str("username", input.Username).Msg("register: create user")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Log(ctx, user.ID, repo.ActionRegister, repo.ResourceUser, user.ID, "role="+user.Role); err != nil {
			h.Log.Warn().Err(err).Int("user_id", user.ID).Msg("audit log write failed")
		}
	}
	h.Log.Info().Str("username", user.Username).Str("role", user.Role).Msg("user registered")

	writeJSON(w, http.StatusOK, registerResponse{Username: user.Username, Role: user.Role})
}

// ==========================
// Token (POST /token, form username/password)
// ==========================
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := parseLoginForm(r); err != nil {
		if middleware.BodyTooLarge(err) {
			JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "invalid form body", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		fields := map[string]string{}
		if username == "" {
			fields["username"] = "username is required"
		}
		if password == "" {
			fields["password"] = "password is required"
		}
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	user, err := h.Users.FindByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		metrics.RecordLogin("error")
		h.Log.Error().Err(err).Str("username", username).Msg("token: lookup failed")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil {
		h.Hasher.VerifyMissing(password)
	}
	if user == nil || !h.Hasher.Verify(password, user.PasswordHash) {
		metrics.RecordLogin("invalid_credentials")
		w.Header().Set("WWW-Authenticate", "Bearer")
		JSONError(w, "incorrect username or password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.Tokens.Issue(user.Username, h.TTL)
	if err != nil {
		metrics.RecordLogin("error")
		h.Log.Error().Err(err).Msg("token: issue failed")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	metrics.RecordLogin("success")
	h.Log.Debug().Str("username", user.Username).Time("expires_at", expiresAt).Msg("token issued")

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", Role: user.Role})
}

// maxLoginFormMemory bounds the in-memory part of a multipart login body.
const maxLoginFormMemory = 1 << 20

// parseLoginForm fills r.PostForm from either an urlencoded or a
// multipart/form-data body.
func parseLoginForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxLoginFormMemory)
	}
	return r.ParseForm()
}
