package services

import (
	"fmt"
	"time"

	"github.com/isdelr/paytrack-be/internal/models"
)

// Timestamps are stored as RFC 3339 text in UTC.
const timestampLayout = time.RFC3339Nano

type scanner interface {
	Scan(dest ...any) error
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

const projectColumns = "p.id, p.owner_id, p.name, p.due_date, p.status, p.created_at, p.updated_at"

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	var dueDate, createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &dueDate, &p.Status, &createdAt, &updatedAt); err != nil {
		return models.Project{}, err
	}
	d, err := models.ParseDate(dueDate)
	if err != nil {
		return models.Project{}, fmt.Errorf("project %s: %w", p.ID, err)
	}
	p.DueDate = d
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	p.Payments = []models.Payment{}
	return p, nil
}

const paymentColumns = "pay.id, pay.amount, pay.date, pay.description, pay.status, pay.created_at, pay.updated_at"

func scanPayment(row scanner, extra ...any) (models.Payment, error) {
	var pay models.Payment
	var date, createdAt, updatedAt string
	dest := append(extra, &pay.ID, &pay.Amount, &date, &pay.Description, &pay.Status, &createdAt, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return models.Payment{}, err
	}
	d, err := models.ParseDate(date)
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %s: %w", pay.ID, err)
	}
	pay.Date = d
	pay.CreatedAt = parseTimestamp(createdAt)
	pay.UpdatedAt = parseTimestamp(updatedAt)
	return pay, nil
}
