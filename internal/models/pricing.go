package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingConfig is one admin-editable rate. Value holds a decimal string.
type PricingConfig struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Key         string    `json:"key" gorm:"uniqueIndex;not null"`
	Value       string    `json:"value" gorm:"not null"`
	Description string    `json:"description"`
	UpdatedBy   *uint     `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductType string

const (
	TapeFormat   ProductType = "tape_format"
	OutputFormat ProductType = "output_format"
)

func (t ProductType) Valid() bool {
	return t == TapeFormat || t == OutputFormat
}

// ProductAvailability controls which tape and output formats are offered.
type ProductAvailability struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	Type      ProductType         `json:"type" gorm:"type:varchar(32);not null;uniqueIndex:idx_availability_type_name"`
	Name      string              `json:"name" gorm:"not null;uniqueIndex:idx_availability_type_name"`
	Label     string              `json:"label"`
	Price     decimal.NullDecimal `json:"price" gorm:"type:numeric(10,2)"`
	IsActive  bool                `json:"is_active" gorm:"not null"`
	SortOrder int                 `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (ProductAvailability) TableName() string {
	return "product_availability"
}
