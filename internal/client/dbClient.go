package client

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/model"
)

// InitDatabase opens MySQL when a DSN is configured and falls back to a
// local sqlite file for zero-config development. TranslateError is on so
// duplicate-key detection behaves the same on both drivers.
func InitDatabase(databaseURL string) (*gorm.DB, error) {
	dialector := sqlite.Open("checkout.db")
	if databaseURL != "" {
		dialector = mysql.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.Product{},
		&model.Vendor{},
		&model.Order{},
		&model.OrderItem{},
		&model.Transaction{},
		&model.Commission{},
		&model.SavedAddress{},
		&model.WebhookEvent{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return db, nil
}
