package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/paytrack-be/internal/database"
	"github.com/isdelr/paytrack-be/internal/models"
)

// PaymentServiceProvider defines the interface for payment services.
type PaymentServiceProvider interface {
	AddPayment(ctx context.Context, ownerID, projectID string, in PaymentInput) (models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, ownerID, projectID, paymentID, status string) (models.Payment, error)
	DeletePayment(ctx context.Context, ownerID, projectID, paymentID string) error
}

// PaymentService mutates the payment sequence of owned projects. Each
// operation is a conditional statement matched on project id and owner, so
// concurrent requests against one project cannot lose each other's writes.
type PaymentService struct {
	db  *sql.DB
	now func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(db *sql.DB) *PaymentService {
	return &PaymentService{db: db, now: time.Now}
}

// AddPayment validates the input and appends it to the project's payments.
// The returned payment is the row this call inserted.
func (s *PaymentService) AddPayment(ctx context.Context, ownerID, projectID string, in PaymentInput) (models.Payment, error) {
	v, err := in.validate()
	if err != nil {
		return models.Payment{}, err
	}

	now := s.now().UTC()
	pay := models.Payment{
		ID:          uuid.New().String(),
		Amount:      v.amount,
		Date:        v.date,
		Description: v.description,
		Status:      v.status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ts := formatTimestamp(now)

	err = database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, project_id, amount, date, description, status, created_at, updated_at)
			SELECT ?, id, ?, ?, ?, ?, ?, ? FROM projects WHERE id = ? AND owner_id = ?`,
			pay.ID, pay.Amount, pay.Date.String(), pay.Description, pay.Status, ts, ts,
			projectID, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return touchProject(ctx, tx, projectID, ts)
	})
	if err != nil {
		return models.Payment{}, err
	}
	return pay, nil
}

// UpdatePaymentStatus sets the status of one payment. Only that payment's
// status is written; the rest of the project is not revalidated. Setting the
// status it already has changes nothing.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, ownerID, projectID, paymentID, status string) (models.Payment, error) {
	status, err := validatePaymentStatus(status)
	if err != nil {
		return models.Payment{}, err
	}

	var pay models.Payment
	err = database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		current, err := loadOwnedPayment(ctx, tx, ownerID, projectID, paymentID)
		if err != nil {
			return err
		}
		if current.Status == status {
			pay = current
			return nil
		}

		ts := formatTimestamp(s.now())
		if _, err := tx.ExecContext(ctx,
			"UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND project_id = ?",
			status, ts, paymentID, projectID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := touchProject(ctx, tx, projectID, ts); err != nil {
			return err
		}
		pay, err = loadOwnedPayment(ctx, tx, ownerID, projectID, paymentID)
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}
	return pay, nil
}

// DeletePayment removes one payment from an owned project.
func (s *PaymentService) DeletePayment(ctx context.Context, ownerID, projectID, paymentID string) error {
	return database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM payments
			WHERE id = ? AND project_id IN (SELECT id FROM projects WHERE id = ? AND owner_id = ?)`,
			paymentID, projectID, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return touchProject(ctx, tx, projectID, formatTimestamp(s.now()))
	})
}

func loadOwnedPayment(ctx context.Context, q database.DBTX, ownerID, projectID, paymentID string) (models.Payment, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments pay JOIN projects p ON p.id = pay.project_id
		WHERE pay.id = ? AND p.id = ? AND p.owner_id = ?`,
		paymentID, projectID, ownerID)
	pay, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, fmt.Errorf("db error: %w", err)
	}
	return pay, nil
}

func touchProject(ctx context.Context, q database.DBTX, projectID, ts string) error {
	if _, err := q.ExecContext(ctx, "UPDATE projects SET updated_at = ? WHERE id = ?", ts, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
