// Package history persists the outcome of every rendered queue entry.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/queue"
)

// Status values stored in Record.Status.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Record is one finished conversion attempt.
type Record struct {
	ID         uint   `gorm:"primaryKey"`
	Source     string `gorm:"index;not null"`
	Output     string
	Status     string `gorm:"index;not null"`
	Error      string `gorm:"type:text"`
	Yaw        int
	Pitch      int
	Roll       int
	CropStart  *float64
	CropEnd    *float64
	DurationMS int64
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Summary aggregates the stored records.
type Summary struct {
	Total     int64
	Succeeded int64
	Failed    int64
	Canceled  int64
}

// Store wraps the history database.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string, log logging.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return NewStore(db, log)
}

// NewStore migrates db and wraps it.
func NewStore(db *gorm.DB, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{db: db, logger: log}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add stores r.
func (s *Store) Add(r *Record) error {
	if r.Source == "" {
		return errors.New("history record needs a source")
	}
	return s.db.Create(r).Error
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	var records []Record
	q := s.db.Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// ForSource returns every record of one source file, newest first.
func (s *Store) ForSource(source string) ([]Record, error) {
	var records []Record
	err := s.db.Where("source = ?", source).Order("id desc").Find(&records).Error
	return records, err
}

// Summary counts records per status.
func (s *Store) Summary() (Summary, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.Model(&Record{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize history: %w", err)
	}

	var sum Summary
	for _, r := range rows {
		sum.Total += r.Count
		switch r.Status {
		case StatusSucceeded:
			sum.Succeeded = r.Count
		case StatusFailed:
			sum.Failed = r.Count
		case StatusCanceled:
			sum.Canceled = r.Count
		}
	}
	return sum, nil
}

// Recorder returns a listener that stores every terminal entry.
func (s *Store) Recorder() queue.Listener {
	return queue.ListenerFuncs{
		OnEntrySucceeded: func(e *queue.Entry) { s.record(e, StatusSucceeded, nil) },
		OnEntryFailed:    func(e *queue.Entry, err error) { s.record(e, StatusFailed, err) },
		OnEntryCanceled:  func(e *queue.Entry) { s.record(e, StatusCanceled, nil) },
	}
}

func (s *Store) record(e *queue.Entry, status string, cause error) {
	settings := e.Video().Settings()
	crop := settings.Crop.Clone()
	r := &Record{
		Source:     settings.Info.Filename,
		Output:     e.Output(),
		Status:     status,
		Yaw:        settings.Rotation.Yaw,
		Pitch:      settings.Rotation.Pitch,
		Roll:       settings.Rotation.Roll,
		CropStart:  crop.Start,
		CropEnd:    crop.End,
		DurationMS: e.Elapsed().Milliseconds(),
	}
	if cause != nil {
		r.Error = cause.Error()
	}

	if err := s.Add(r); err != nil {
		s.logger.Error("failed to record conversion", "source", r.Source, "error", err)
	}
}
