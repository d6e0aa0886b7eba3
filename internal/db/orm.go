package db

import (
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenORM wraps an existing pool in a GORM session for the catalog tables.
// The schema itself is owned by the goose migrations, not AutoMigrate.
// Catalog writes are single statements, so no implicit transaction is opened.
func OpenORM(database *sql.DB) (*gorm.DB, error) {
	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: database}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open orm: %w", err)
	}
	return orm, nil
}
