package handlers

import (
	"net/http"

	"github.com/isdelr/paytrack-be/internal/auth"
	"github.com/isdelr/paytrack-be/internal/models"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	service      services.UserServiceProvider
	tokens       *auth.TokenIssuer
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider, tokens *auth.TokenIssuer, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens, secureCookie: secureCookie}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Register creates an account and signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decode(w, r, &payload) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		writeError(w, log.Error().Str("email", payload.Email), err)
		return
	}

	h.startSession(w, http.StatusCreated, user)
}

// Login authenticates a user and issues a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decode(w, r, &payload) {
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		writeError(w, log.Error().Str("email", payload.Email), err)
		return
	}

	h.startSession(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, user models.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, h.tokens.NewCookie(token, h.secureCookie))
	writeJSON(w, status, sessionResponse{Token: token, User: toUserResponse(user)})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, log.Error().Str("user_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
