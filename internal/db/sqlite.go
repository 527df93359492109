package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/terraincognita07/nestling/internal/logging"
	embeddedmigrations "github.com/terraincognita07/nestling/migrations"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormWriter routes gorm's slow-query and error lines into the app logger.
type gormWriter struct {
	logger logging.Logger
}

func (writer gormWriter) Printf(format string, args ...interface{}) {
	writer.logger.Warnf("db: "+format, args...)
}

func OpenSQLite(dbPath string, logger logging.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			gormWriter{logger: logger},
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer keeps blob upserts serialized on the one device file.
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("open sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(database, embeddedmigrations.Files, logger); err != nil {
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}

	logger.Infof("db: opened %s", dbPath)
	return database, nil
}
