package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/isdelr/paytrack-be/internal/database"
	"github.com/isdelr/paytrack-be/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setupTestDB creates a migrated database file under the test's temp dir.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "paytrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func newTestUserService(db *sql.DB) *UserService {
	s := NewUserService(db)
	s.bcryptCost = bcrypt.MinCost
	return s
}

func createTestUser(t *testing.T, db *sql.DB, email string) models.User {
	t.Helper()
	u, err := newTestUserService(db).CreateUser(context.Background(), email, "pw123", "Test User")
	require.NoError(t, err)
	return u
}

func createTestProject(t *testing.T, svc *ProjectService, ownerID, name string) models.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), ownerID, ProjectInput{Name: name, DueDate: "2024-06-01"})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }
