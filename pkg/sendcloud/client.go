package sendcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	BaseURL          string
	ServicePointsURL string
	PublicKey        string
	SecretKey        string
	HTTPClient       *http.Client
}

func NewClient(baseURL, servicePointsURL, publicKey, secretKey string) *Client {
	return &Client{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		ServicePointsURL: strings.TrimRight(servicePointsURL, "/"),
		PublicKey:        publicKey,
		SecretKey:        secretKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sendcloud: status %d: %s", e.StatusCode, e.Body)
}

type countryPrice struct {
	ISO2  string          `json:"iso_2"`
	Price decimal.Decimal `json:"price"`
}

type shippingMethod struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	Carrier           string         `json:"carrier"`
	MinWeight         string         `json:"min_weight"`
	MaxWeight         string         `json:"max_weight"`
	ServicePointInput string         `json:"service_point_input"`
	LeadTimeHours     *int           `json:"lead_time_hours"`
	Countries         []countryPrice `json:"countries"`
}

type shippingMethodsResponse struct {
	ShippingMethods []shippingMethod `json:"shipping_methods"`
}

type RateRequest struct {
	FromCountry    string
	FromPostalCode string
	ToCountry      string
	ToPostalCode   string
	WeightKg       decimal.Decimal
}

type Rate struct {
	MethodID      int             `json:"method_id"`
	Carrier       string          `json:"carrier"`
	Service       string          `json:"service"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	EstimatedDays int             `json:"estimated_days"`
	Handover      string          `json:"handover"` // pickup or dropoff
}

// GetRates returns the methods able to carry the parcel, cheapest first.
func (c *Client) GetRates(ctx context.Context, req RateRequest) ([]Rate, error) {
	q := url.Values{}
	q.Set("from_country", strings.ToUpper(req.FromCountry))
	q.Set("to_country", strings.ToUpper(req.ToCountry))
	if req.FromPostalCode != "" {
		q.Set("from_postal_code", req.FromPostalCode)
	}
	if req.ToPostalCode != "" {
		q.Set("to_postal_code", req.ToPostalCode)
	}

	var resp shippingMethodsResponse
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/shipping_methods?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	toCountry := strings.ToUpper(req.ToCountry)
	rates := make([]Rate, 0, len(resp.ShippingMethods))
	for _, m := range resp.ShippingMethods {
		if !fitsWeight(m, req.WeightKg) {
			continue
		}
		price, ok := priceFor(m, toCountry)
		if !ok {
			continue
		}

		handover := "pickup"
		if m.ServicePointInput != "" && m.ServicePointInput != "none" {
			handover = "dropoff"
		}
		days := 0
		if m.LeadTimeHours != nil {
			days = int(math.Ceil(float64(*m.LeadTimeHours) / 24))
		}

		rates = append(rates, Rate{
			MethodID:      m.ID,
			Carrier:       m.Carrier,
			Service:       m.Name,
			Price:         price.Round(2),
			Currency:      "EUR",
			EstimatedDays: days,
			Handover:      handover,
		})
	}

	sort.SliceStable(rates, func(i, j int) bool {
		if !rates[i].Price.Equal(rates[j].Price) {
			return rates[i].Price.LessThan(rates[j].Price)
		}
		return rates[i].EstimatedDays < rates[j].EstimatedDays
	})
	return rates, nil
}

func fitsWeight(m shippingMethod, weight decimal.Decimal) bool {
	if min, err := decimal.NewFromString(m.MinWeight); err == nil && weight.LessThan(min) {
		return false
	}
	if max, err := decimal.NewFromString(m.MaxWeight); err == nil && weight.GreaterThan(max) {
		return false
	}
	return true
}

func priceFor(m shippingMethod, country string) (decimal.Decimal, bool) {
	for _, cp := range m.Countries {
		if strings.EqualFold(cp.ISO2, country) {
			return cp.Price, true
		}
	}
	return decimal.Zero, false
}

type ServicePoint struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Carrier     string `json:"carrier"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Distance    int    `json:"distance"`
}

// ServicePoints lists drop-off locations near a postal code, nearest first.
func (c *Client) ServicePoints(ctx context.Context, country, postalCode string) ([]ServicePoint, error) {
	q := url.Values{}
	q.Set("country", strings.ToUpper(country))
	q.Set("address", postalCode)
	q.Set("radius", "10000")

	var points []ServicePoint
	if err := c.do(ctx, http.MethodGet, c.ServicePointsURL+"/service-points?"+q.Encode(), nil, &points); err != nil {
		return nil, err
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Distance < points[j].Distance })
	return points, nil
}

type Address struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

type ParcelRequest struct {
	OrderNumber      string
	From             Address
	To               Address
	WeightKg         decimal.Decimal
	ShippingMethodID int
	ServicePointID   int
}

type parcelPayload struct {
	Name           string         `json:"name"`
	Address        string         `json:"address"`
	City           string         `json:"city"`
	PostalCode     string         `json:"postal_code"`
	Country        string         `json:"country"`
	Email          string         `json:"email,omitempty"`
	Telephone      string         `json:"telephone,omitempty"`
	FromName       string         `json:"from_name"`
	FromAddress1   string         `json:"from_address_1"`
	FromCity       string         `json:"from_city"`
	FromPostalCode string         `json:"from_postal_code"`
	FromCountry    string         `json:"from_country"`
	FromEmail      string         `json:"from_email,omitempty"`
	FromTelephone  string         `json:"from_telephone,omitempty"`
	OrderNumber    string         `json:"order_number"`
	Weight         string         `json:"weight"`
	RequestLabel   bool           `json:"request_label"`
	Shipment       map[string]int `json:"shipment"`
	ToServicePoint int            `json:"to_service_point,omitempty"`
}

type parcelResponse struct {
	Parcel struct {
		ID             int64  `json:"id"`
		TrackingNumber string `json:"tracking_number"`
		Label          struct {
			LabelPrinter  string   `json:"label_printer"`
			NormalPrinter []string `json:"normal_printer"`
		} `json:"label"`
	} `json:"parcel"`
}

type Label struct {
	ParcelID       int64  `json:"parcel_id"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
}

// CreateLabel books a parcel and requests its label.
func (c *Client) CreateLabel(ctx context.Context, req ParcelRequest) (*Label, error) {
	payload := map[string]parcelPayload{
		"parcel": {
			Name:           req.To.Name,
			Address:        req.To.Address,
			City:           req.To.City,
			PostalCode:     req.To.PostalCode,
			Country:        strings.ToUpper(req.To.Country),
			Email:          req.To.Email,
			Telephone:      req.To.Phone,
			FromName:       req.From.Name,
			FromAddress1:   req.From.Address,
			FromCity:       req.From.City,
			FromPostalCode: req.From.PostalCode,
			FromCountry:    strings.ToUpper(req.From.Country),
			FromEmail:      req.From.Email,
			FromTelephone:  req.From.Phone,
			OrderNumber:    req.OrderNumber,
			Weight:         req.WeightKg.StringFixed(3),
			RequestLabel:   true,
			Shipment:       map[string]int{"id": req.ShippingMethodID},
			ToServicePoint: req.ServicePointID,
		},
	}

	var resp parcelResponse
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/parcels", payload, &resp); err != nil {
		return nil, err
	}

	label := &Label{
		ParcelID:       resp.Parcel.ID,
		TrackingNumber: resp.Parcel.TrackingNumber,
		LabelURL:       resp.Parcel.Label.LabelPrinter,
	}
	if label.LabelURL == "" && len(resp.Parcel.Label.NormalPrinter) > 0 {
		label.LabelURL = resp.Parcel.Label.NormalPrinter[0]
	}
	return label, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.PublicKey, c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
