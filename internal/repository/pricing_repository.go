package repository

import (
	"context"
	"vhs_converter/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PricingRepository interface {
	GetConfigs(ctx context.Context) ([]models.PricingConfig, error)
	UpsertConfig(ctx context.Context, cfg *models.PricingConfig) error
	ListAvailability(ctx context.Context, activeOnly bool) ([]models.ProductAvailability, error)
	GetAvailability(ctx context.Context, id uint) (*models.ProductAvailability, error)
	CreateAvailability(ctx context.Context, item *models.ProductAvailability) error
	UpdateAvailability(ctx context.Context, item *models.ProductAvailability) error
	DeleteAvailability(ctx context.Context, id uint) error
}

type pricingRepository struct {
	db *gorm.DB
}

func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &pricingRepository{db: db}
}

func (r *pricingRepository) GetConfigs(ctx context.Context) ([]models.PricingConfig, error) {
	var configs []models.PricingConfig
	err := r.db.WithContext(ctx).Order("key ASC").Find(&configs).Error
	return configs, err
}

func (r *pricingRepository) UpsertConfig(ctx context.Context, cfg *models.PricingConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_by", "updated_at"}),
	}).Create(cfg).Error
}

func (r *pricingRepository) ListAvailability(ctx context.Context, activeOnly bool) ([]models.ProductAvailability, error) {
	var items []models.ProductAvailability
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("type ASC, sort_order ASC, name ASC").Find(&items).Error
	return items, err
}

func (r *pricingRepository) GetAvailability(ctx context.Context, id uint) (*models.ProductAvailability, error) {
	var item models.ProductAvailability
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *pricingRepository) CreateAvailability(ctx context.Context, item *models.ProductAvailability) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *pricingRepository) UpdateAvailability(ctx context.Context, item *models.ProductAvailability) error {
	return translate(r.db.WithContext(ctx).Save(item).Error)
}

func (r *pricingRepository) DeleteAvailability(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductAvailability{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
