package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/paytrack-be/internal/csvio"
	"github.com/isdelr/paytrack-be/internal/database"
	"github.com/isdelr/paytrack-be/internal/models"
)

// ProjectServiceProvider defines the interface for project services. Every
// method is scoped to ownerID; projects of other users behave as absent.
type ProjectServiceProvider interface {
	GetAllProjects(ctx context.Context, ownerID, status string) ([]models.Project, error)
	GetProjectByID(ctx context.Context, ownerID, id string) (models.Project, error)
	CreateProject(ctx context.Context, ownerID string, in ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, ownerID, id string, patch ProjectPatch) (models.Project, error)
	DeleteProject(ctx context.Context, ownerID, id string) error
	ExportProjects(ctx context.Context, ownerID string, w io.Writer) error
	ImportProjects(ctx context.Context, ownerID string, r io.Reader) (ImportResult, error)
	GetEarnings(ctx context.Context, ownerID string, year int) (models.EarningsSummary, error)
}

// ImportResult summarizes a successful CSV import.
type ImportResult struct {
	Imported int `json:"imported"`
}

// ProjectService provides business logic for projects.
type ProjectService struct {
	db  *sql.DB
	now func() time.Time
}

// NewProjectService creates a new ProjectService.
func NewProjectService(db *sql.DB) *ProjectService {
	return &ProjectService{db: db, now: time.Now}
}

// GetAllProjects returns the owner's projects with their payments, oldest
// first. A non-empty status restricts the result to that status.
func (s *ProjectService) GetAllProjects(ctx context.Context, ownerID, status string) ([]models.Project, error) {
	if status != "" {
		if _, err := validateProjectStatus(status); err != nil {
			return nil, err
		}
	}

	projects := []models.Project{}
	err := database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		query := "SELECT " + projectColumns + " FROM projects p WHERE p.owner_id = ?"
		args := []any{ownerID}
		if status != "" {
			query += " AND p.status = ?"
			args = append(args, status)
		}
		query += " ORDER BY p.created_at, p.rowid"

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		index := make(map[string]int)
		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			index[p.ID] = len(projects)
			projects = append(projects, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(projects) == 0 {
			return nil
		}

		payRows, err := tx.QueryContext(ctx, `
			SELECT pay.project_id, `+paymentColumns+`
			FROM payments pay JOIN projects p ON p.id = pay.project_id
			WHERE p.owner_id = ?
			ORDER BY pay.seq`, ownerID)
		if err != nil {
			return err
		}
		defer payRows.Close()

		for payRows.Next() {
			var projectID string
			pay, err := scanPayment(payRows, &projectID)
			if err != nil {
				return err
			}
			if i, ok := index[projectID]; ok {
				projects[i].Payments = append(projects[i].Payments, pay)
			}
		}
		return payRows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return projects, nil
}

// GetProjectByID retrieves one owned project with its payments.
func (s *ProjectService) GetProjectByID(ctx context.Context, ownerID, id string) (models.Project, error) {
	return loadProject(ctx, s.db, ownerID, id)
}

func loadProject(ctx context.Context, q database.DBTX, ownerID, id string) (models.Project, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects p WHERE p.id = ? AND p.owner_id = ?", id, ownerID)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, fmt.Errorf("db error: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments pay WHERE pay.project_id = ? ORDER BY pay.seq", id)
	if err != nil {
		return models.Project{}, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return models.Project{}, fmt.Errorf("db error: %w", err)
		}
		p.Payments = append(p.Payments, pay)
	}
	if err := rows.Err(); err != nil {
		return models.Project{}, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// CreateProject validates the input and stores a new project without payments.
func (s *ProjectService) CreateProject(ctx context.Context, ownerID string, in ProjectInput) (models.Project, error) {
	v, err := in.validate()
	if err != nil {
		return models.Project{}, err
	}

	p := s.newProject(ownerID, v)
	if err := insertProject(ctx, s.db, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *ProjectService) newProject(ownerID string, v validProject) models.Project {
	now := s.now().UTC()
	return models.Project{
		ID:        uuid.New().String(),
		Name:      v.name,
		DueDate:   v.dueDate,
		Status:    v.status,
		OwnerID:   ownerID,
		Payments:  []models.Payment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func insertProject(ctx context.Context, q database.DBTX, p models.Project) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.DueDate.String(), p.Status,
		formatTimestamp(p.CreatedAt), formatTimestamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateProject applies the non-nil fields of patch in one conditional
// update. Payments are changed only through the payment operations.
func (s *ProjectService) UpdateProject(ctx context.Context, ownerID, id string, patch ProjectPatch) (models.Project, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTimestamp(s.now())}

	if patch.Name != nil {
		name, err := validateProjectName(*patch.Name)
		if err != nil {
			return models.Project{}, err
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if patch.DueDate != nil {
		d, err := validateDate("dueDate", *patch.DueDate)
		if err != nil {
			return models.Project{}, err
		}
		sets = append(sets, "due_date = ?")
		args = append(args, d.String())
	}
	if patch.Status != nil {
		status, err := validateProjectStatus(*patch.Status)
		if err != nil {
			return models.Project{}, err
		}
		sets = append(sets, "status = ?")
		args = append(args, status)
	}
	args = append(args, id, ownerID)

	var updated models.Project
	err := database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?", args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		updated, err = loadProject(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}
	return updated, nil
}

// DeleteProject removes an owned project; its payments go with it.
func (s *ProjectService) DeleteProject(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

// ExportProjects writes the owner's projects as CSV. Payments are not exported.
func (s *ProjectService) ExportProjects(ctx context.Context, ownerID string, w io.Writer) error {
	projects, err := s.GetAllProjects(ctx, ownerID, "")
	if err != nil {
		return &ExportError{Err: err}
	}
	if err := csvio.ExportProjects(w, projects); err != nil {
		return &ExportError{Err: err}
	}
	return nil
}

// ImportProjects streams CSV rows, validates each one as a project creation
// request and inserts them all in one transaction. Nothing is stored unless
// every row is accepted.
func (s *ProjectService) ImportProjects(ctx context.Context, ownerID string, r io.Reader) (ImportResult, error) {
	reader, err := csvio.NewReader(r)
	if err != nil {
		return ImportResult{}, &ImportError{Err: err}
	}

	var projects []models.Project
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportResult{}, &ImportError{Err: err}
		}

		v, err := ProjectInput{Name: row.Name, DueDate: row.DueDate, Status: row.Status}.validate()
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return ImportResult{}, &ValidationError{
					Field:   fmt.Sprintf("line %d: %s", row.Line, ve.Field),
					Message: ve.Message,
				}
			}
			return ImportResult{}, err
		}
		projects = append(projects, s.newProject(ownerID, v))
	}

	if len(projects) == 0 {
		return ImportResult{}, nil
	}

	err = database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		for _, p := range projects {
			if err := insertProject(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, &ImportError{Err: err}
	}
	return ImportResult{Imported: len(projects)}, nil
}

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// GetEarnings totals the owner's payments dated within year: paid amounts per
// month plus the outstanding pending amount.
func (s *ProjectService) GetEarnings(ctx context.Context, ownerID string, year int) (models.EarningsSummary, error) {
	summary := models.EarningsSummary{Year: year, Months: make([]models.MonthlyEarning, 12)}
	for i, m := range monthNames {
		summary.Months[i].Month = m
	}

	from := models.NewDate(year, time.January, 1).String()
	to := models.NewDate(year+1, time.January, 1).String()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pay.amount, pay.date, pay.status
		FROM payments pay JOIN projects p ON p.id = pay.project_id
		WHERE p.owner_id = ? AND pay.date >= ? AND pay.date < ?`, ownerID, from, to)
	if err != nil {
		return models.EarningsSummary{}, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var amount float64
		var date, status string
		if err := rows.Scan(&amount, &date, &status); err != nil {
			return models.EarningsSummary{}, fmt.Errorf("db error: %w", err)
		}
		switch status {
		case models.PaymentPaid:
			d, err := models.ParseDate(date)
			if err != nil {
				return models.EarningsSummary{}, err
			}
			summary.Months[d.Month()-1].Amount += amount
			summary.Total += amount
		case models.PaymentPending:
			summary.Pending += amount
		}
	}
	if err := rows.Err(); err != nil {
		return models.EarningsSummary{}, fmt.Errorf("db error: %w", err)
	}
	return summary, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
