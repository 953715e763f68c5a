package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/paytrack-be/internal/models"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, email, password, name string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db         *sql.DB
	bcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db, bcryptCost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	var createdAt string
	row := s.db.QueryRowContext(ctx, "SELECT id, email, name, created_at FROM users WHERE id = ?", id)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = parseTimestamp(createdAt)
	return user, nil
}

// getUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) getUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	var createdAt string
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?", normalizeEmail(email))
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = parseTimestamp(createdAt)
	return user, nil
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, email, password, name string) (models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	switch {
	case email == "":
		return models.User{}, invalid("email", "email is required")
	case password == "":
		return models.User{}, invalid("password", "password is required")
	case name == "":
		return models.User{}, invalid("name", "name is required")
	}
	// Only a bare address is accepted, so one mailbox maps to one stored email.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return models.User{}, invalid("email", "email is not valid")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, email, name, password_hash, created_at) VALUES(?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.PasswordHash, formatTimestamp(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
