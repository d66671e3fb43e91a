package repository

import (
	"context"
	"vhs_converter/internal/models"

	"gorm.io/gorm"
)

// OrderNoteRepository is append-only.
type OrderNoteRepository interface {
	Create(ctx context.Context, note *models.OrderNote) error
	GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderNote, error)
}

type orderNoteRepository struct {
	db *gorm.DB
}

func NewOrderNoteRepository(db *gorm.DB) OrderNoteRepository {
	return &orderNoteRepository{db: db}
}

func (r *orderNoteRepository) Create(ctx context.Context, note *models.OrderNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *orderNoteRepository) GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&notes).Error
	return notes, err
}

type OrderMessageRepository interface {
	Create(ctx context.Context, message *models.OrderMessage) error
	GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderMessage, error)
}

type orderMessageRepository struct {
	db *gorm.DB
}

func NewOrderMessageRepository(db *gorm.DB) OrderMessageRepository {
	return &orderMessageRepository{db: db}
}

func (r *orderMessageRepository) Create(ctx context.Context, message *models.OrderMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *orderMessageRepository) GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderMessage, error) {
	var messages []models.OrderMessage
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}
