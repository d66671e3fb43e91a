package migrations

import (
	"context"
	"fmt"
	"vhs_converter/internal/database"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"
	"vhs_converter/internal/pricing"
	"vhs_converter/internal/repository"
	"vhs_converter/internal/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seed carries the optional first admin account.
type Seed struct {
	AdminEmail    string
	AdminPassword string
}

type defaultProduct struct {
	kind  models.ProductType
	name  string
	label string
}

var defaultCatalogue = []defaultProduct{
	{models.TapeFormat, "vhs", "VHS"},
	{models.TapeFormat, "vhs-c", "VHS-C"},
	{models.TapeFormat, "hi8", "Hi8"},
	{models.TapeFormat, "video8", "Video8"},
	{models.TapeFormat, "minidv", "MiniDV"},
	{models.TapeFormat, "betamax", "Betamax"},
	{models.OutputFormat, "usb", "USB drive"},
	{models.OutputFormat, "dvd", "DVD copies"},
	{models.OutputFormat, "cloud", "Cloud download link"},
}

// RunMigrations brings the schema up to date and seeds default data. Existing
// rows are never overwritten.
func RunMigrations(ctx context.Context, db *gorm.DB, users services.UserService, seed Seed) error {
	logger.Log.Info("Running database migrations")
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createDefaultData(ctx, repository.NewPricingRepository(db), users, seed); err != nil {
		return fmt.Errorf("failed to create default data: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

func createDefaultData(ctx context.Context, pricingRepo repository.PricingRepository, users services.UserService, seed Seed) error {
	configs, err := pricingRepo.GetConfigs(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(configs))
	for _, c := range configs {
		present[c.Key] = true
	}
	for key, def := range pricing.Keys() {
		if present[key] {
			continue
		}
		if err := pricingRepo.UpsertConfig(ctx, &models.PricingConfig{Key: key, Value: def[0], Description: def[1]}); err != nil {
			return fmt.Errorf("seed pricing %s: %w", key, err)
		}
		logger.Log.Info("seeded pricing config", zap.String("key", key), zap.String("value", def[0]))
	}

	items, err := pricingRepo.ListAvailability(ctx, false)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		for i, p := range defaultCatalogue {
			item := &models.ProductAvailability{
				Type:      p.kind,
				Name:      p.name,
				Label:     p.label,
				IsActive:  true,
				SortOrder: i,
			}
			if err := pricingRepo.CreateAvailability(ctx, item); err != nil {
				return fmt.Errorf("seed availability %s: %w", p.name, err)
			}
		}
		logger.Log.Info("seeded product availability", zap.Int("items", len(defaultCatalogue)))
	}

	if seed.AdminEmail != "" && seed.AdminPassword != "" {
		admin, err := users.EnsureAdmin(ctx, seed.AdminEmail, seed.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Log.Info("admin account ready", zap.String("email", admin.Email))
	}
	return nil
}
