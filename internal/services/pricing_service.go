package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"
	"vhs_converter/internal/pricing"
	"vhs_converter/internal/redis"
	"vhs_converter/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const publicPricingKey = "pricing:public"

// TempStore is the short-lived key/value storage backed by Redis.
type TempStore interface {
	SetTempData(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetTempData(ctx context.Context, key string, dest interface{}) error
	DeleteTempData(ctx context.Context, key string) error
}

// PricingSnapshot is the rate table and active catalogue at one point in time.
type PricingSnapshot struct {
	Rates         pricing.Rates                `json:"rates"`
	TapeFormats   []models.ProductAvailability `json:"tape_formats"`
	OutputFormats []models.ProductAvailability `json:"output_formats"`
}

// OutputPrices returns the prices set on active output formats.
func (s *PricingSnapshot) OutputPrices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(s.OutputFormats))
	for _, f := range s.OutputFormats {
		if f.Price.Valid {
			prices[f.Name] = f.Price.Decimal
		}
	}
	return prices
}

// CheckFormats rejects tape and output formats that are not currently offered.
func (s *PricingSnapshot) CheckFormats(cfg *models.OrderConfiguration) error {
	tapes := make(map[string]bool, len(s.TapeFormats))
	for _, f := range s.TapeFormats {
		tapes[f.Name] = true
	}
	for name, qty := range cfg.TapeFormats {
		if qty > 0 && !tapes[name] {
			return fmt.Errorf("%w: tape format %q is not available", ErrInvalidConfiguration, name)
		}
	}

	outputs := make(map[string]bool, len(s.OutputFormats))
	for _, f := range s.OutputFormats {
		outputs[f.Name] = true
	}
	for _, name := range cfg.OutputFormats {
		if name != pricing.IncludedFormat && !outputs[name] {
			return fmt.Errorf("%w: output format %q is not available", ErrInvalidConfiguration, name)
		}
	}
	return nil
}

// Price normalizes and validates the configuration, then prices it against
// this snapshot.
func (s *PricingSnapshot) Price(cfg *models.OrderConfiguration) (pricing.Quote, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return pricing.Quote{}, err
	}
	if err := s.CheckFormats(cfg); err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Calculate(cfg.PricingInput(), s.Rates, s.OutputPrices()), nil
}

type AvailabilityInput struct {
	Type      models.ProductType `json:"type" binding:"required,oneof=tape_format output_format"`
	Name      string             `json:"name" binding:"required,max=64"`
	Label     string             `json:"label" binding:"max=128"`
	Price     *string            `json:"price"`
	IsActive  *bool              `json:"is_active"`
	SortOrder int                `json:"sort_order"`
}

type PricingService interface {
	Snapshot(ctx context.Context) (*PricingSnapshot, error)
	PublicListing(ctx context.Context) (*PricingSnapshot, error)
	Quote(ctx context.Context, cfg *models.OrderConfiguration) (pricing.Quote, error)
	ListConfigs(ctx context.Context) ([]models.PricingConfig, error)
	UpdateConfig(ctx context.Context, key, value, description string, adminID uint) (*models.PricingConfig, error)
	ListAvailability(ctx context.Context) ([]models.ProductAvailability, error)
	CreateAvailability(ctx context.Context, in AvailabilityInput) (*models.ProductAvailability, error)
	UpdateAvailability(ctx context.Context, id uint, in AvailabilityInput) (*models.ProductAvailability, error)
	DeleteAvailability(ctx context.Context, id uint) error
}

type pricingService struct {
	pricingRepo repository.PricingRepository
	cache       TempStore
	cacheTTL    time.Duration
}

func NewPricingService(pricingRepo repository.PricingRepository, cache TempStore, cacheTTL time.Duration) PricingService {
	return &pricingService{pricingRepo: pricingRepo, cache: cache, cacheTTL: cacheTTL}
}

// Snapshot always reads the database; prices charged come from here.
func (s *pricingService) Snapshot(ctx context.Context) (*PricingSnapshot, error) {
	configs, err := s.pricingRepo.GetConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing configs: %w", err)
	}
	items, err := s.pricingRepo.ListAvailability(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}

	snap := &PricingSnapshot{
		Rates:         make(pricing.Rates, len(configs)),
		TapeFormats:   []models.ProductAvailability{},
		OutputFormats: []models.ProductAvailability{},
	}
	for _, c := range configs {
		snap.Rates[c.Key] = c.Value
	}
	for _, item := range items {
		switch item.Type {
		case models.TapeFormat:
			snap.TapeFormats = append(snap.TapeFormats, item)
		case models.OutputFormat:
			snap.OutputFormats = append(snap.OutputFormats, item)
		}
	}
	return snap, nil
}

// PublicListing serves the effective rates (defaults filled in) and the
// active catalogue, cached in Redis.
func (s *pricingService) PublicListing(ctx context.Context) (*PricingSnapshot, error) {
	var cached PricingSnapshot
	err := s.cache.GetTempData(ctx, publicPricingKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.ErrNotFound) {
		logger.Log.Warn("pricing cache read failed", zap.Error(err))
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	effective := make(pricing.Rates, len(pricing.Keys()))
	for key := range pricing.Keys() {
		effective[key] = snap.Rates.Get(key).String()
	}
	snap.Rates = effective

	if err := s.cache.SetTempData(ctx, publicPricingKey, snap, s.cacheTTL); err != nil {
		logger.Log.Warn("pricing cache write failed", zap.Error(err))
	}
	return snap, nil
}

func (s *pricingService) invalidate(ctx context.Context) {
	if err := s.cache.DeleteTempData(ctx, publicPricingKey); err != nil {
		logger.Log.Warn("pricing cache invalidation failed", zap.Error(err))
	}
}

// Quote validates the configuration and prices it from the database snapshot.
// Any total supplied by a client is never consulted.
func (s *pricingService) Quote(ctx context.Context, cfg *models.OrderConfiguration) (pricing.Quote, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return pricing.Quote{}, err
	}
	return snap.Price(cfg)
}

// ListConfigs returns stored rates plus unset calculator keys at their defaults.
func (s *pricingService) ListConfigs(ctx context.Context) ([]models.PricingConfig, error) {
	configs, err := s.pricingRepo.GetConfigs(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(configs))
	for _, c := range configs {
		present[c.Key] = true
	}
	for key, def := range pricing.Keys() {
		if !present[key] {
			configs = append(configs, models.PricingConfig{Key: key, Value: def[0], Description: def[1]})
		}
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Key < configs[j].Key })
	return configs, nil
}

func (s *pricingService) UpdateConfig(ctx context.Context, key, value, description string, adminID uint) (*models.PricingConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	v, ok := pricing.ParseRate(value)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a non-negative decimal", ErrInvalidInput, value)
	}
	if description == "" {
		if def, known := pricing.Keys()[key]; known {
			description = def[1]
		}
	}

	cfg := &models.PricingConfig{
		Key:         key,
		Value:       v.String(),
		Description: description,
		UpdatedBy:   &adminID,
	}
	if err := s.pricingRepo.UpsertConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save pricing config %s: %w", key, err)
	}
	s.invalidate(ctx)
	return cfg, nil
}

func (s *pricingService) ListAvailability(ctx context.Context) ([]models.ProductAvailability, error) {
	return s.pricingRepo.ListAvailability(ctx, false)
}

func applyAvailability(item *models.ProductAvailability, in AvailabilityInput) error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Type)
	}
	item.Type = in.Type
	item.Name = strings.ToLower(strings.TrimSpace(in.Name))
	item.Label = in.Label
	item.SortOrder = in.SortOrder
	if item.Label == "" {
		item.Label = item.Name
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	item.Price = decimal.NullDecimal{}
	if in.Price != nil && strings.TrimSpace(*in.Price) != "" {
		price, ok := pricing.ParseRate(*in.Price)
		if !ok {
			return fmt.Errorf("%w: price %q is not a non-negative decimal", ErrInvalidInput, *in.Price)
		}
		item.Price = decimal.NewNullDecimal(price.Round(2))
	}
	if item.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}

func (s *pricingService) CreateAvailability(ctx context.Context, in AvailabilityInput) (*models.ProductAvailability, error) {
	item := &models.ProductAvailability{IsActive: true}
	if err := applyAvailability(item, in); err != nil {
		return nil, err
	}
	if err := s.pricingRepo.CreateAvailability(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s %q already exists", ErrInvalidInput, item.Type, item.Name)
		}
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *pricingService) UpdateAvailability(ctx context.Context, id uint, in AvailabilityInput) (*models.ProductAvailability, error) {
	item, err := s.pricingRepo.GetAvailability(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAvailability(item, in); err != nil {
		return nil, err
	}
	if err := s.pricingRepo.UpdateAvailability(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s %q already exists", ErrInvalidInput, item.Type, item.Name)
		}
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *pricingService) DeleteAvailability(ctx context.Context, id uint) error {
	if err := s.pricingRepo.DeleteAvailability(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
