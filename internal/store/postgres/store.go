// Package postgres persists conversations and learner progress in PostgreSQL
// through gorm.
package postgres

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fluentpal/tutor/backend/internal/model/progress"
)

const (
	connectAttempts = 5
	maxRetryDelay   = 10 * time.Second
)

// Store implements the chat and progress stores on one database handle.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn, retrying with backoff, then migrates the schema and
// seeds the mission catalog.
func Open(ctx context.Context, dsn string) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	delay := time.Second
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})
		if err == nil {
			err = ping(ctx, db)
		}
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			return nil, fmt.Errorf("connect to database after %d attempts: %w", attempt, err)
		}

		log.WithError(err).WithField("attempt", attempt).Warn("database not reachable, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	log.Info("connected to database")
	return s, nil
}

// New wraps an existing connection without migrating.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the tables and upserts the built-in mission catalog.
func (s *Store) Migrate(ctx context.Context) error {
	models := []interface{}{
		&sessionRecord{},
		&messageRecord{},
		&profileRecord{},
		&missionRecord{},
		&userMissionRecord{},
	}
	if err := s.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := s.upsertMissions(s.db.WithContext(ctx), progress.SeedMissions()); err != nil {
		return fmt.Errorf("seed missions: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
