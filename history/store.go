// Package history persists completed workflow runs in sqlite through gorm.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/resilience"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// Store reads and writes runs.
type Store struct {
	db     *gorm.DB
	log    *logger.Logger
	mu     sync.Mutex
	closed bool
}

// Open connects to sqlite and migrates the runs table. Open attempts are
// retried up to cfg.MaxRetries times.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("history")

	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("history open failed, retrying", logger.Fields("attempt", attempt, "error", err.Error(), "backoff_ms", backoff.Milliseconds()))
	}

	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		// Each connection to ":memory:" would see its own empty database.
		if cfg.inMemory() {
			sqlDB.SetMaxOpenConns(1)
		} else {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", cfg.DSN, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Run{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	log.Debug("history store opened", logger.Fields("dsn", cfg.DSN))
	return &Store{db: db, log: log}, nil
}

// Save inserts a run. Only completed runs belong here.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run == nil {
		return apperrors.InvalidInput("run", "must not be nil")
	}
	if run.Workflow == "" {
		return apperrors.MissingField("workflow")
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fromDatabase(err, "run")
	}
	s.log.Debug("run saved", logger.Fields("run_id", run.ID.String(), "workflow", run.Workflow))
	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var runs []Run
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fromDatabase(err, "run")
	}
	return runs, nil
}

// Get returns the run with the given ID, or a NOT_FOUND AppError.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("run", id.String())
		}
		return nil, fromDatabase(err, "run")
	}
	return &run, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CheckHealth reports the store down when the database does not answer.
func (s *Store) CheckHealth(ctx context.Context) observability.Health {
	return observability.CheckFunc("history", observability.HealthStatusDown, s.Ping).CheckHealth(ctx)
}

// Close closes the connection pool. Safe to call more than once.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.closed = true
	return sqlDB.Close()
}

func fromDatabase(err error, resource string) *apperrors.AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, "")
	}
	return apperrors.DatabaseError(err)
}
