// Package audit records non-clean verdicts for later human review.
//
// The store is best effort and off the hot path: the orchestrator logs and
// moves on if a write fails, and deduplicates writes per fingerprint within
// a configurable window to keep repeated identical submissions from
// flooding the log.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/censorgate/types"
)

// Images can carry megabytes of base64; audit rows keep a prefix only.
const maxStoredContent = 1000

// Entry is one audit record.
type Entry struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Content     string    `gorm:"size:1000" json:"content"`
	ContentType string    `gorm:"size:16;index" json:"content_type"`
	Risk        string    `gorm:"size:16" json:"risk"`
	Reasons     string    `json:"reasons"`
	Fingerprint string    `gorm:"size:64;index" json:"fingerprint"`
	Extra       string    `json:"extra,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the historical table name.
func (Entry) TableName() string { return "audit_logs" }

// Logger is the audit collaborator consumed by the orchestrator.
type Logger interface {
	// HasRecentLog reports whether fingerprint was logged within the window.
	HasRecentLog(ctx context.Context, fingerprint string, within time.Duration) (bool, error)
	// Add appends one record.
	Add(ctx context.Context, e Entry) error
	Close() error
}

// Store is the sqlite-backed Logger.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the audit database at path. Use ":memory:"
// for tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, types.NewConfigurationError("open audit database failed").WithCause(err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, types.NewConfigurationError("migrate audit schema failed").WithCause(err)
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "audit_store")),
	}, nil
}

// HasRecentLog implements Logger.
func (s *Store) HasRecentLog(ctx context.Context, fingerprint string, within time.Duration) (bool, error) {
	cutoff := time.Now().Add(-within)
	var e Entry
	err := s.db.WithContext(ctx).
		Where("fingerprint = ? AND created_at >= ?", fingerprint, cutoff).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Add implements Logger.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if len(e.Content) > maxStoredContent {
		e.Content = e.Content[:maxStoredContent]
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return err
	}
	s.logger.Debug("audit record written",
		zap.String("fingerprint", e.Fingerprint),
		zap.String("risk", e.Risk),
	)
	return nil
}

// Recent returns up to limit records newest first. Used by operators and
// tests; not on the submission path.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Close implements Logger.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
