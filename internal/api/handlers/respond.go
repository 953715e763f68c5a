package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/isdelr/paytrack-be/internal/auth"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps service errors to HTTP statuses. Internal failures are
// logged with ev and answered with a generic message.
func writeError(w http.ResponseWriter, ev *zerolog.Event, err error) {
	var ve *services.ValidationError
	var ie *services.ImportError

	switch {
	case errors.As(err, &ve):
		ev.Discard()
		writeMessage(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ie):
		ev.Discard()
		writeMessage(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrInvalidCredentials):
		ev.Discard()
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		ev.Discard()
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrUnauthorized):
		ev.Discard()
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	default:
		ev.Err(err).Msg("Request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// maxJSONBodyBytes caps request bodies outside the CSV upload.
const maxJSONBodyBytes = 64 << 10

// decode reads a JSON body into v, answering 400 on failure and 413 when the
// body exceeds maxJSONBodyBytes.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// userID returns the caller set by the auth middleware, answering 401 when
// the route was mounted without it.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, log.Error(), fmt.Errorf("%w: %v", services.ErrUnauthorized, err))
		return "", false
	}
	return id, true
}
