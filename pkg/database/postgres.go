package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgresDB opens a pooled gorm connection.
func NewPostgresDB(dsn string, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// MigrateDB applies the SQL migrations found at sourceURL (e.g. file://migrations).
func MigrateDB(db *gorm.DB, sourceURL string, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get *sql.DB from *gorm.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping before migration failed: %w", err)
	}

	m, err := NewMigrator(sqlDB, sourceURL)
	if err != nil {
		return err
	}

	log.Info("applying database migrations", zap.String("source", sourceURL))
	err = m.Up()
	switch {
	case errors.Is(err, migrateV4.ErrNoChange):
		log.Info("database schema is up to date")
	case err != nil:
		return fmt.Errorf("migration up failed: %w", err)
	default:
		version, dirty, _ := m.Version()
		log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

// NewMigrator builds a golang-migrate instance on an existing connection.
func NewMigrator(sqlDB *sql.DB, sourceURL string) (*migrateV4.Migrate, error) {
	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate postgres driver: %w", err)
	}
	m, err := migrateV4.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
