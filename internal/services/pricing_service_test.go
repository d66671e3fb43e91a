package services

import (
	"context"
	"errors"
	"testing"
	"vhs_converter/internal/models"
	"vhs_converter/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingService_Quote(t *testing.T) {
	e := newTestEnv()
	req := sampleRequest()

	quote, err := e.pricing.Quote(context.Background(), &req.Configuration)
	require.NoError(t, err)
	assert.Equal(t, "65.00", quote.Total.StringFixed(2))
	assert.True(t, quote.RushFee.IsZero())
}

func TestPricingService_Quote_UsesStoredRates(t *testing.T) {
	e := newTestEnv()
	e.pricingRepo.configs[pricing.KeyBasePricePerTape] = models.PricingConfig{Key: pricing.KeyBasePricePerTape, Value: "30"}
	req := sampleRequest()
	req.Configuration.ProcessingSpeed = "rush"

	quote, err := e.pricing.Quote(context.Background(), &req.Configuration)
	require.NoError(t, err)
	assert.Equal(t, "70.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "35.00", quote.RushFee.StringFixed(2))
	assert.Equal(t, "105.00", quote.Total.StringFixed(2))
}

func TestPricingService_Quote_RejectsInactiveFormat(t *testing.T) {
	e := newTestEnv()
	for _, item := range e.pricingRepo.items {
		if item.Name == "hi8" {
			item.IsActive = false
		}
	}
	req := sampleRequest()
	req.Configuration.TapeFormats = map[string]int{"hi8": 1}

	_, err := e.pricing.Quote(context.Background(), &req.Configuration)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	req.Configuration.TapeFormats = map[string]int{"vhs": 1}
	req.Configuration.OutputFormats = []string{"bluray"}
	_, err = e.pricing.Quote(context.Background(), &req.Configuration)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestPricingService_PublicListing_CachesAndInvalidates(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	first, err := e.pricing.PublicListing(ctx)
	require.NoError(t, err)
	assert.Equal(t, "25", first.Rates[pricing.KeyBasePricePerTape])
	assert.Len(t, first.TapeFormats, 3)
	reads := e.pricingRepo.reads

	_, err = e.pricing.PublicListing(ctx)
	require.NoError(t, err)
	assert.Equal(t, reads, e.pricingRepo.reads, "second read should come from cache")

	_, err = e.pricing.UpdateConfig(ctx, pricing.KeyBasePricePerTape, "27.5", "", 1)
	require.NoError(t, err)
	assert.False(t, e.redis.has(publicPricingKey))

	updated, err := e.pricing.PublicListing(ctx)
	require.NoError(t, err)
	assert.Equal(t, "27.5", updated.Rates[pricing.KeyBasePricePerTape])
}

func TestPricingService_UpdateConfig_Validation(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	_, err := e.pricing.UpdateConfig(ctx, pricing.KeyPricePerHour, "-3", "", 1)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = e.pricing.UpdateConfig(ctx, pricing.KeyPricePerHour, "ten", "", 1)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	cfg, err := e.pricing.UpdateConfig(ctx, pricing.KeyPricePerHour, "12", "", 4)
	require.NoError(t, err)
	assert.Equal(t, "Price per hour of footage", cfg.Description)
	require.NotNil(t, cfg.UpdatedBy)
	assert.Equal(t, uint(4), *cfg.UpdatedBy)
}

func TestPricingService_ListConfigs_FillsDefaults(t *testing.T) {
	e := newTestEnv()
	e.pricingRepo.configs[pricing.KeyUSBPrice] = models.PricingConfig{Key: pricing.KeyUSBPrice, Value: "20"}

	configs, err := e.pricing.ListConfigs(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, len(pricing.Keys()))

	byKey := map[string]string{}
	for _, c := range configs {
		byKey[c.Key] = c.Value
	}
	assert.Equal(t, "20", byKey[pricing.KeyUSBPrice])
	assert.Equal(t, "10", byKey[pricing.KeyCloudPrice])
}

func TestPricingService_Availability(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	price := "22.50"
	active := true

	item, err := e.pricing.CreateAvailability(ctx, AvailabilityInput{
		Type: models.OutputFormat, Name: " BluRay ", Price: &price, IsActive: &active,
	})
	require.NoError(t, err)
	assert.Equal(t, "bluray", item.Name)
	assert.True(t, item.Price.Decimal.Equal(decimal.RequireFromString("22.5")))

	_, err = e.pricing.CreateAvailability(ctx, AvailabilityInput{Type: models.OutputFormat, Name: "bluray"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	req := sampleRequest()
	req.Configuration.OutputFormats = []string{"bluray"}
	quote, err := e.pricing.Quote(ctx, &req.Configuration)
	require.NoError(t, err)
	assert.Equal(t, "72.50", quote.Total.StringFixed(2))

	inactive := false
	_, err = e.pricing.UpdateAvailability(ctx, item.ID, AvailabilityInput{Type: models.OutputFormat, Name: "bluray", IsActive: &inactive})
	require.NoError(t, err)
	_, err = e.pricing.Quote(ctx, &req.Configuration)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	require.NoError(t, e.pricing.DeleteAvailability(ctx, item.ID))
	assert.True(t, errors.Is(e.pricing.DeleteAvailability(ctx, item.ID), ErrNotFound))
}
