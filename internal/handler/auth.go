package handler

import (
	"errors"
	"net/http"

	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/middleware"
	"github.com/chathub/internal/model"
	"github.com/chathub/internal/session"
	"github.com/chathub/internal/store"
	"github.com/chathub/internal/ws"
)

// AuthHandler serves registration, login and profile updates. Login
// issues an opaque session token; mutating calls are expected behind
// the SessionAuth middleware.
type AuthHandler struct {
	store  *store.Store
	tokens session.TokenStore
	hub    *ws.Hub
}

func NewAuthHandler(st *store.Store, tokens session.TokenStore, hub *ws.Hub) *AuthHandler {
	return &AuthHandler{store: st, tokens: tokens, hub: hub}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type authResponse struct {
	Success bool             `json:"success"`
	User    model.UserPublic `json:"user"`
	Token   string           `json:"token,omitempty"`
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.AddUser(r.Context(), store.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		writeFailure(w, http.StatusBadRequest, "username is already taken")
		return
	case errors.Is(err, store.ErrEmailTaken):
		writeFailure(w, http.StatusBadRequest, "email is already registered")
		return
	case err != nil:
		logger.Errorf("register user=%s: %v", req.Username, err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user.ToPublic()})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/login. Credential checks are plain equality:
// credential hardening lives outside this service.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.FindUser(r.Context(), req.Username)
	if err != nil || user.Password != req.Password {
		writeFailure(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token := session.NewToken()
	if err := h.tokens.Set(r.Context(), token, user.Username); err != nil {
		logger.Errorf("login issue token user=%s: %v", user.Username, err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user.ToPublic(), Token: token})
}

type updateRequest struct {
	Username string `json:"username"`
	Updates  struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
		Avatar   *string `json:"avatar"`
	} `json:"updates"`
}

// UpdateUser handles POST /api/user/update. The acting session must
// belong to the user being updated. Every connected client learns
// about the change via user:updated.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeFailure(w, http.StatusBadRequest, "username is required")
		return
	}
	if actor := middleware.GetUsername(r.Context()); actor != req.Username {
		writeFailure(w, http.StatusForbidden, "cannot update another user")
		return
	}

	user, err := h.store.UpdateUser(r.Context(), req.Username, store.UserUpdate{
		Username: req.Updates.Username,
		Password: req.Updates.Password,
		Avatar:   req.Updates.Avatar,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusBadRequest, "user not found")
		return
	case errors.Is(err, store.ErrUsernameTaken):
		writeFailure(w, http.StatusBadRequest, "username is already taken")
		return
	case err != nil:
		logger.Errorf("update user=%s: %v", req.Username, err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.BroadcastUserUpdated(user.ToPublic())
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user.ToPublic()})
}
