package db

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tune the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	Verbose      bool
}

// New opens a gorm connection to the ITAM mirror database. The mirror is
// owned by the backend; no migrations run from here.
func New(dsn string, opts Options, log zerolog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if opts.Verbose {
		level = logger.Info
	}
	gormLogger := logger.New(gormWriter{log: log}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, errors.Wrap(err, "open mirror database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 20
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)

	log.Info().Msg("connected to mirror database")
	return db, nil
}

// gormWriter adapts zerolog to gorm's printf-style logger.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Debug().Str("component", "gorm").Msgf(format, args...)
}
