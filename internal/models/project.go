package models

import "time"

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
)

// Project is a unit of work owned by one user. Its payments have no
// lifecycle of their own and are removed with it.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DueDate   Date      `json:"dueDate"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"ownerId"`
	Payments  []Payment `json:"payments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	return s == ProjectActive || s == ProjectCompleted
}
