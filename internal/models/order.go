package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vhs_converter/internal/pricing"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Order struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	OrderNumber string `json:"order_number" gorm:"uniqueIndex;not null"`
	UserID      *uint  `json:"user_id" gorm:"index"`
	User        *User  `json:"-" gorm:"foreignKey:UserID"`
	Status      string `json:"status" gorm:"type:varchar(32);index;default:'pending'"`

	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email" gorm:"index"`
	ContactPhone string `json:"contact_phone"`

	TapeFormats     datatypes.JSONType[map[string]int] `json:"tape_formats"`
	TotalTapes      int                                `json:"total_tapes" gorm:"not null"`
	EstimatedHours  int                                `json:"estimated_hours" gorm:"not null"`
	OutputFormats   datatypes.JSONType[[]string]       `json:"output_formats"`
	DVDQuantity     int                                `json:"dvd_quantity"`
	TapeHandling    string                             `json:"tape_handling" gorm:"type:varchar(16);not null"`
	ProcessingSpeed string                             `json:"processing_speed" gorm:"type:varchar(16);not null"`
	Instructions    string                             `json:"instructions" gorm:"type:text"`
	IsGift          bool                               `json:"is_gift"`

	Subtotal decimal.Decimal `json:"subtotal" gorm:"type:numeric(10,2);not null"`
	RushFee  decimal.Decimal `json:"rush_fee" gorm:"type:numeric(10,2);not null"`
	Total    decimal.Decimal `json:"total" gorm:"type:numeric(10,2);not null"`

	PaymentStatus   string  `json:"payment_status" gorm:"type:varchar(16);default:'unpaid'"`
	StripeSessionID *string `json:"-" gorm:"uniqueIndex"`

	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	ShippingCountry    string `json:"shipping_country"`
	ShippingMethodID   int    `json:"shipping_method_id"`
	ServicePointID     int    `json:"service_point_id"`

	ParcelID       *int64 `json:"parcel_id"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
	DownloadURL    string `json:"download_url"`
	FileLink       string `json:"file_link"`

	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DueDate     *time.Time     `json:"due_date"`
	CompletedAt *time.Time     `json:"completed_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderLabelSent        OrderStatus = "label_sent"
	OrderTapesReceived    OrderStatus = "tapes_received"
	OrderInProgress       OrderStatus = "in_progress"
	OrderQualityCheck     OrderStatus = "quality_check"
	OrderReadyForDownload OrderStatus = "ready_for_download"
	OrderShipped          OrderStatus = "shipped"
	OrderComplete         OrderStatus = "complete"
	OrderCancelled        OrderStatus = "cancelled"
)

// fulfillmentSequence is the nominal forward order of statuses.
var fulfillmentSequence = []OrderStatus{
	OrderPending,
	OrderLabelSent,
	OrderTapesReceived,
	OrderInProgress,
	OrderQualityCheck,
	OrderReadyForDownload,
	OrderShipped,
	OrderComplete,
}

func (s OrderStatus) position() int {
	for i, st := range fulfillmentSequence {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s == OrderCancelled || s.position() >= 0
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderComplete || s == OrderCancelled
}

var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransition allows forward moves along the fulfillment sequence (skips
// included) and cancellation from any non-terminal state.
func (s OrderStatus) CanTransition(next OrderStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if s.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s)
	}
	if next == OrderCancelled {
		return nil
	}
	if next.position() <= s.position() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// OrderStatuses returns all statuses, side branch last.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, 0, len(fulfillmentSequence)+1)
	out = append(out, fulfillmentSequence...)
	return append(out, OrderCancelled)
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// OrderConfiguration is what a customer picks before paying.
type OrderConfiguration struct {
	TapeFormats     map[string]int `json:"tape_formats" binding:"required"`
	TotalTapes      int            `json:"total_tapes" binding:"required,min=1"`
	EstimatedHours  int            `json:"estimated_hours" binding:"required,min=1"`
	OutputFormats   []string       `json:"output_formats" binding:"required,min=1"`
	DVDQuantity     int            `json:"dvd_quantity" binding:"min=0"`
	TapeHandling    string         `json:"tape_handling" binding:"required,oneof=return dispose"`
	ProcessingSpeed string         `json:"processing_speed" binding:"required,oneof=standard rush"`
	Instructions    string         `json:"instructions" binding:"max=4000"`
	IsGift          bool           `json:"is_gift"`
}

var ErrInvalidConfiguration = errors.New("invalid order configuration")

// Normalize lowercases format names and makes sure the included format is present.
func (c *OrderConfiguration) Normalize() {
	formats := make(map[string]int, len(c.TapeFormats))
	for name, qty := range c.TapeFormats {
		formats[strings.ToLower(strings.TrimSpace(name))] += qty
	}
	c.TapeFormats = formats

	outputs := make([]string, 0, len(c.OutputFormats)+1)
	seen := map[string]bool{}
	for _, f := range c.OutputFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		outputs = append(outputs, f)
	}
	if !seen[pricing.IncludedFormat] {
		outputs = append([]string{pricing.IncludedFormat}, outputs...)
	}
	c.OutputFormats = outputs
}

func (c *OrderConfiguration) Validate() error {
	sum := 0
	for name, qty := range c.TapeFormats {
		if qty < 0 {
			return fmt.Errorf("%w: negative quantity for %s", ErrInvalidConfiguration, name)
		}
		sum += qty
	}
	if sum == 0 {
		return fmt.Errorf("%w: at least one tape is required", ErrInvalidConfiguration)
	}
	if sum != c.TotalTapes {
		return fmt.Errorf("%w: total_tapes %d does not match sum of formats %d", ErrInvalidConfiguration, c.TotalTapes, sum)
	}
	if c.EstimatedHours < 1 {
		return fmt.Errorf("%w: estimated_hours must be at least 1", ErrInvalidConfiguration)
	}
	if len(c.OutputFormats) == 0 {
		return fmt.Errorf("%w: at least one output format is required", ErrInvalidConfiguration)
	}
	if c.DVDQuantity < 0 {
		return fmt.Errorf("%w: dvd_quantity must not be negative", ErrInvalidConfiguration)
	}
	if c.TapeHandling != pricing.HandlingReturn && c.TapeHandling != pricing.HandlingDispose {
		return fmt.Errorf("%w: unknown tape_handling %q", ErrInvalidConfiguration, c.TapeHandling)
	}
	if c.ProcessingSpeed != pricing.SpeedStandard && c.ProcessingSpeed != pricing.SpeedRush {
		return fmt.Errorf("%w: unknown processing_speed %q", ErrInvalidConfiguration, c.ProcessingSpeed)
	}
	return nil
}

func (c *OrderConfiguration) PricingInput() pricing.Input {
	return pricing.Input{
		TapeFormats:     c.TapeFormats,
		EstimatedHours:  c.EstimatedHours,
		OutputFormats:   c.OutputFormats,
		DVDQuantity:     c.DVDQuantity,
		TapeHandling:    c.TapeHandling,
		ProcessingSpeed: c.ProcessingSpeed,
	}
}

// ApplyConfiguration copies the configuration onto the order.
func (o *Order) ApplyConfiguration(c *OrderConfiguration) {
	o.TapeFormats = datatypes.NewJSONType(c.TapeFormats)
	o.TotalTapes = c.TotalTapes
	o.EstimatedHours = c.EstimatedHours
	o.OutputFormats = datatypes.NewJSONType(c.OutputFormats)
	o.DVDQuantity = c.DVDQuantity
	o.TapeHandling = c.TapeHandling
	o.ProcessingSpeed = c.ProcessingSpeed
	o.Instructions = c.Instructions
	o.IsGift = c.IsGift
}

// ShippingInfo is the customer's address plus the chosen inbound shipping option.
type ShippingInfo struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone"`
	Address          string `json:"address" binding:"required"`
	City             string `json:"city" binding:"required"`
	PostalCode       string `json:"postal_code" binding:"required"`
	Country          string `json:"country" binding:"required,len=2"`
	ShippingMethodID int    `json:"shipping_method_id"`
	ServicePointID   int    `json:"service_point_id"`
}

func (o *Order) ApplyShipping(s *ShippingInfo) {
	o.ContactName = s.Name
	o.ContactEmail = strings.ToLower(strings.TrimSpace(s.Email))
	o.ContactPhone = s.Phone
	o.ShippingAddress = s.Address
	o.ShippingCity = s.City
	o.ShippingPostalCode = s.PostalCode
	o.ShippingCountry = strings.ToUpper(s.Country)
	o.ShippingMethodID = s.ShippingMethodID
	o.ServicePointID = s.ServicePointID
}

type OrderNote struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderID   uint      `json:"order_id" gorm:"index;not null"`
	AuthorID  uint      `json:"author_id" gorm:"not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderID   uint      `json:"order_id" gorm:"index;not null"`
	AuthorID  uint      `json:"author_id" gorm:"not null"`
	IsAdmin   bool      `json:"is_admin"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}
