package services

import (
	"context"
	"fmt"
	"strings"
	"vhs_converter/internal/config"
	"vhs_converter/internal/models"
	"vhs_converter/pkg/sendcloud"

	"github.com/shopspring/decimal"
)

// ShippingProvider is the carrier aggregator used for inbound labels.
type ShippingProvider interface {
	Configured() bool
	GetRates(ctx context.Context, req sendcloud.RateRequest) ([]sendcloud.Rate, error)
	ServicePoints(ctx context.Context, country, postalCode string) ([]sendcloud.ServicePoint, error)
	CreateLabel(ctx context.Context, req sendcloud.ParcelRequest) (*sendcloud.Label, error)
}

var (
	parcelBaseWeight    = decimal.RequireFromString("0.25")
	parcelWeightPerTape = decimal.RequireFromString("0.35")
)

// ParcelWeight estimates the inbound box weight in kilograms.
func ParcelWeight(tapes int) decimal.Decimal {
	if tapes < 1 {
		tapes = 1
	}
	return parcelBaseWeight.Add(parcelWeightPerTape.Mul(decimal.NewFromInt(int64(tapes))))
}

type RatesRequest struct {
	Country    string `json:"country" binding:"required,len=2"`
	PostalCode string `json:"postal_code" binding:"required"`
	TotalTapes int    `json:"total_tapes" binding:"required,min=1"`
}

type ShippingService interface {
	Rates(ctx context.Context, req RatesRequest) ([]sendcloud.Rate, error)
	GetServicePoints(ctx context.Context, country, postalCode string) ([]sendcloud.ServicePoint, error)
	BookInboundLabel(ctx context.Context, order *models.Order) (*sendcloud.Label, error)
}

type shippingService struct {
	provider ShippingProvider
	studio   config.StudioAddress
}

func NewShippingService(provider ShippingProvider, studio config.StudioAddress) ShippingService {
	return &shippingService{provider: provider, studio: studio}
}

// Rates quotes shipping from the customer to the studio.
func (s *shippingService) Rates(ctx context.Context, req RatesRequest) ([]sendcloud.Rate, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}
	rates, err := s.provider.GetRates(ctx, sendcloud.RateRequest{
		FromCountry:    strings.ToUpper(req.Country),
		FromPostalCode: req.PostalCode,
		ToCountry:      s.studio.Country,
		ToPostalCode:   s.studio.PostalCode,
		WeightKg:       ParcelWeight(req.TotalTapes),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return rates, nil
}

func (s *shippingService) GetServicePoints(ctx context.Context, country, postalCode string) ([]sendcloud.ServicePoint, error) {
	if country == "" || postalCode == "" {
		return nil, fmt.Errorf("%w: country and postal_code are required", ErrInvalidInput)
	}
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}
	points, err := s.provider.ServicePoints(ctx, strings.ToUpper(country), postalCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return points, nil
}

// BookInboundLabel books the parcel that carries the customer's tapes to the studio.
func (s *shippingService) BookInboundLabel(ctx context.Context, order *models.Order) (*sendcloud.Label, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}
	if order.ShippingMethodID == 0 {
		return nil, fmt.Errorf("%w: order %s has no shipping method", ErrInvalidInput, order.OrderNumber)
	}

	label, err := s.provider.CreateLabel(ctx, sendcloud.ParcelRequest{
		OrderNumber: order.OrderNumber,
		From: sendcloud.Address{
			Name:       order.ContactName,
			Email:      order.ContactEmail,
			Phone:      order.ContactPhone,
			Address:    order.ShippingAddress,
			City:       order.ShippingCity,
			PostalCode: order.ShippingPostalCode,
			Country:    order.ShippingCountry,
		},
		To: sendcloud.Address{
			Name:       s.studio.Name,
			Email:      s.studio.Email,
			Phone:      s.studio.Phone,
			Address:    s.studio.Address,
			City:       s.studio.City,
			PostalCode: s.studio.PostalCode,
			Country:    s.studio.Country,
		},
		WeightKg:         ParcelWeight(order.TotalTapes),
		ShippingMethodID: order.ShippingMethodID,
		ServicePointID:   order.ServicePointID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return label, nil
}
