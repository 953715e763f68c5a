package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/rs/zerolog/log"
)

// PaymentHandler handles HTTP requests for the payments of a project.
type PaymentHandler struct {
	service services.PaymentServiceProvider
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service services.PaymentServiceProvider) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Amount accepts a JSON number or a numeric string. Parsing is left to the
// service so malformed values are reported as validation errors.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(data)
	}
	return nil
}

// PaymentPayload defines the structure for payment creation requests.
type PaymentPayload struct {
	Amount      Amount `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// PaymentStatusPayload defines the structure for payment status updates.
type PaymentStatusPayload struct {
	Status string `json:"status"`
}

// Add appends a payment to a project.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")
	var payload PaymentPayload
	if !decode(w, r, &payload) {
		return
	}

	payment, err := h.service.AddPayment(r.Context(), uid, projectID, services.PaymentInput{
		Amount:      string(payload.Amount),
		Date:        payload.Date,
		Description: payload.Description,
		Status:      payload.Status,
	})
	if err != nil {
		writeError(w, log.Error().Str("project_id", projectID), err)
		return
	}

	log.Info().Str("project_id", projectID).Str("payment_id", payment.ID).Msg("Payment added")
	writeJSON(w, http.StatusCreated, payment)
}

// UpdateStatus sets the status of one payment.
func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")
	paymentID := chi.URLParam(r, "paymentId")
	var payload PaymentStatusPayload
	if !decode(w, r, &payload) {
		return
	}

	payment, err := h.service.UpdatePaymentStatus(r.Context(), uid, projectID, paymentID, payload.Status)
	if err != nil {
		writeError(w, log.Error().Str("project_id", projectID).Str("payment_id", paymentID), err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// Delete removes one payment.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")
	paymentID := chi.URLParam(r, "paymentId")

	if err := h.service.DeletePayment(r.Context(), uid, projectID, paymentID); err != nil {
		writeError(w, log.Error().Str("project_id", projectID).Str("payment_id", paymentID), err)
		return
	}
	writeMessage(w, http.StatusOK, "Payment deleted successfully")
}
