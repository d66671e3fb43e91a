package database

import (
	"fmt"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	// Configure GORM
	config := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(databaseURL), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Log.Info("Database connected")
	return db, nil
}

// AutoMigrate creates or alters tables for every model. It never drops anything.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PricingConfig{},
		&models.ProductAvailability{},
		&models.Order{},
		&models.OrderNote{},
		&models.OrderMessage{},
	)
}
