package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/isdelr/paytrack-be/internal/models"
)

// Plain decimal notation, optionally with an exponent as JSON allows.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

const (
	maxProjectNameLen = 200
	maxDescriptionLen = 500
)

// ProjectInput is the creation payload for a project. Dates and statuses are
// raw strings so that every format problem surfaces as a ValidationError.
type ProjectInput struct {
	Name    string
	DueDate string
	Status  string
}

// ProjectPatch carries the fields to change; nil fields are left alone.
type ProjectPatch struct {
	Name    *string
	DueDate *string
	Status  *string
}

// PaymentInput is the creation payload for a payment.
type PaymentInput struct {
	Amount      string
	Date        string
	Description string
	Status      string
}

type validProject struct {
	name    string
	dueDate models.Date
	status  string
}

type validPayment struct {
	amount      float64
	date        models.Date
	description string
	status      string
}

func validateProjectName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("name", "name is required")
	}
	if len([]rune(name)) > maxProjectNameLen {
		return "", invalid("name", "name cannot exceed %d characters", maxProjectNameLen)
	}
	return name, nil
}

func validateDate(field, raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return models.Date{}, invalid(field, "%s is required", field)
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, invalid(field, "%s must be a date (YYYY-MM-DD)", field)
	}
	return d, nil
}

func validateProjectStatus(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !models.ValidProjectStatus(s) {
		return "", invalid("status", "%q is not a valid status", raw)
	}
	return s, nil
}

func validatePaymentStatus(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !models.ValidPaymentStatus(s) {
		return "", invalid("status", "%q is not a valid status", raw)
	}
	return s, nil
}

func (in ProjectInput) validate() (validProject, error) {
	var out validProject
	var err error

	if out.name, err = validateProjectName(in.Name); err != nil {
		return out, err
	}
	if out.dueDate, err = validateDate("dueDate", in.DueDate); err != nil {
		return out, err
	}
	out.status = models.ProjectActive
	if strings.TrimSpace(in.Status) != "" {
		if out.status, err = validateProjectStatus(in.Status); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (in PaymentInput) validate() (validPayment, error) {
	var out validPayment

	raw := strings.TrimSpace(in.Amount)
	if raw == "" {
		return out, invalid("amount", "Amount is required")
	}
	if !decimalPattern.MatchString(raw) {
		return out, invalid("amount", "Amount must be a number")
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return out, invalid("amount", "Amount must be a number")
	}
	if amount <= 0 {
		return out, invalid("amount", "Amount must be positive")
	}
	out.amount = amount

	if out.date, err = validateDate("date", in.Date); err != nil {
		return out, err
	}

	out.description = strings.TrimSpace(in.Description)
	if out.description == "" {
		return out, invalid("description", "Description is required")
	}
	if len([]rune(out.description)) > maxDescriptionLen {
		return out, invalid("description", "Description cannot exceed %d characters", maxDescriptionLen)
	}

	out.status = models.PaymentPending
	if strings.TrimSpace(in.Status) != "" {
		if out.status, err = validatePaymentStatus(in.Status); err != nil {
			return out, err
		}
	}
	return out, nil
}
