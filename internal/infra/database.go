package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"faktura/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx and migrates
// the billing schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// RunMigrations creates/updates all tables. Shared with integration tests.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Customer{},
		&model.BillingSettings{},
		&model.Invoice{},
		&model.Automation{},
	)
}
