// Package store archives finished runs and their per-test results in
// a relational database.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/browsertestoor/pkg/config"
	"github.com/ethpandaops/browsertestoor/pkg/results"
)

// Store provides persistence for finished runs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// SaveRun archives a run summary and its results in one
	// transaction.
	SaveRun(ctx context.Context, summary results.Summary, res []results.TestResult, start, end time.Time) error

	ListRuns(ctx context.Context, limit, offset int) ([]Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListResults(ctx context.Context, runID string) ([]TestRecord, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening run database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&TestRecord{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Run database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

func (s *store) SaveRun(ctx context.Context, summary results.Summary, res []results.TestResult, start, end time.Time) error {
	run := &Run{
		RunID:           summary.RunID,
		SuiteName:       summary.SuiteName,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: summary.TotalDuration.Seconds(),
		TestsTotal:      summary.Statistics.TotalTests,
		TestsPassed:     summary.Statistics.Passed,
		TestsFailed:     summary.Statistics.Failed,
		TestsErrored:    summary.Statistics.Errors,
		TestsSkipped:    summary.Statistics.Skipped,
		SuccessRate:     summary.Statistics.SuccessRate,
	}

	records := make([]TestRecord, 0, len(res))

	for i := range res {
		r := &res[i]

		records = append(records, TestRecord{
			RunID:           summary.RunID,
			TestName:        r.TestName,
			Status:          string(r.Status),
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			DurationSeconds: r.Duration.Seconds(),
			Output:          r.Output,
			Error:           r.Error,
			URL:             r.Metadata.URL,
			Provider:        r.Metadata.Provider,
			Model:           r.Metadata.Model,
			Environment:     r.Metadata.Environment,
			Tags:            strings.Join(r.Metadata.Tags, ","),
			Retries:         r.Metadata.Retries,
			Screenshots:     strings.Join(r.Screenshots, ","),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return fmt.Errorf("inserting results: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("archiving run %s: %w", summary.RunID, err)
	}

	return nil
}

// ListRuns returns archived runs, newest first.
func (s *store) ListRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []Run
	if err := s.db.WithContext(ctx).
		Order("start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// GetRun returns one archived run, or gorm.ErrRecordNotFound.
func (s *store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error; err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}

	return &run, nil
}

// ListResults returns the archived results of one run in completion
// order.
func (s *store) ListResults(ctx context.Context, runID string) ([]TestRecord, error) {
	var records []TestRecord
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing results for run %s: %w", runID, err)
	}

	return records, nil
}
