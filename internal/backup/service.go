package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Uploader ships a finished snapshot somewhere off-host.
type Uploader interface {
	Upload(ctx context.Context, key, path string) error
}

// Service writes consistent snapshots of the SQLite database.
type Service struct {
	db       *sql.DB
	dir      string
	uploader Uploader
	now      func() time.Time
}

// NewService creates a backup service writing into dir. uploader may be nil.
func NewService(db *sql.DB, dir string, uploader Uploader) *Service {
	return &Service{db: db, dir: dir, uploader: uploader, now: time.Now}
}

// Run snapshots the database with VACUUM INTO and uploads the file when an
// uploader is configured. It returns the path of the local snapshot.
func (s *Service) Run(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory: %w", err)
	}

	name := fmt.Sprintf("paytrack_%s.db", s.now().UTC().Format("20060102T150405.000"))
	path := filepath.Join(s.dir, name)

	// VACUUM INTO refuses to overwrite, so a leftover from a failed run is removed first.
	_ = os.Remove(path)
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	log.Info().Str("path", path).Msg("Database snapshot written")

	if s.uploader != nil {
		key := "backups/" + name
		if err := s.uploader.Upload(ctx, key, path); err != nil {
			return path, fmt.Errorf("upload snapshot: %w", err)
		}
		log.Info().Str("key", key).Msg("Database snapshot uploaded")
	}
	return path, nil
}
