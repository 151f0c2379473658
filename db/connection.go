package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jayabed45/unihub-sub000/config"
	"github.com/Jayabed45/unihub-sub000/models"
)

// Connect establishes a database connection. PostgreSQL is used in
// production; a sqlite:// URL selects the embedded driver for local
// development.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	// Configure GORM logger
	var gormLogger logger.Interface
	if cfg.Environment == "production" {
		gormLogger = logger.Default.LogMode(logger.Silent)
	} else {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	if strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
		path := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: gormLogger,
		})
	} else {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: gormLogger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
		// SQLite handles one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	return db, nil
}

// AutoMigrate runs automatic database migrations
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.NotificationEvent{}); err != nil {
		return fmt.Errorf("failed to migrate %T: %w", &models.NotificationEvent{}, err)
	}
	return nil
}
