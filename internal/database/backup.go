package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupConfig controls the periodic snapshot of the sqlite file.
type BackupConfig struct {
	Enabled       bool
	Path          string
	IntervalHours int
	RetentionDays int
}

// BackupService copies the database file on a schedule. With sqlite on a
// single connection a plain file copy is a consistent snapshot between
// transactions.
type BackupService struct {
	dbPath string
	config BackupConfig
	logger zerolog.Logger
}

// NewBackupService creates a backup service for the database at dbPath.
func NewBackupService(dbPath string, cfg BackupConfig, logger zerolog.Logger) *BackupService {
	if cfg.Path == "" {
		cfg.Path = "backups"
	}
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = 24
	}
	return &BackupService{
		dbPath: dbPath,
		config: cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Start runs the backup loop until ctx is cancelled.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("backups disabled")
		return
	}

	s.logger.Info().
		Int("interval_hours", s.config.IntervalHours).
		Str("path", s.config.Path).
		Msg("backup service started")

	ticker := time.NewTicker(time.Duration(s.config.IntervalHours) * time.Hour)
	defer ticker.Stop()

	if err := s.Run(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Run(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.cleanup()
		}
	}
}

// Run takes one snapshot.
func (s *BackupService) Run() error {
	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("mediconnect_%s.db", time.Now().UTC().Format("20060102_150405"))
	target := filepath.Join(s.config.Path, name)

	source, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(target)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Str("path", target).Msg("backup written")
	return nil
}

func (s *BackupService) cleanup() {
	if s.config.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory failed")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", entry.Name()).Msg("removing expired backup")
			_ = os.Remove(filepath.Join(s.config.Path, entry.Name()))
		}
	}
}
