package models

import "time"

// Payment statuses. A status is a manually set label, not a transaction state.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Payment is a monetary record nested inside a Project.
type Payment struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Date        Date      `json:"date"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	return s == PaymentPending || s == PaymentPaid
}
