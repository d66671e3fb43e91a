// Package pricing turns an order configuration and a rate table into a quote.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rate keys understood by the calculator.
const (
	KeyBasePricePerTape       = "basePricePerTape"
	KeyPricePerHour           = "pricePerHour"
	KeyReturnShipping         = "returnShipping"
	KeyRushMultiplier         = "rushMultiplier"
	KeyDVDPerDisc             = "dvdPerDisc"
	KeyUSBPrice               = "usbPrice"
	KeyCloudPrice             = "cloudPrice"
	KeyTurnaroundDaysStandard = "turnaroundDaysStandard"
	KeyTurnaroundDaysRush     = "turnaroundDaysRush"
)

// IncludedFormat is part of every order at no extra cost.
const IncludedFormat = "mp4"

const (
	HandlingReturn  = "return"
	HandlingDispose = "dispose"

	SpeedStandard = "standard"
	SpeedRush     = "rush"
)

type defaultRate struct {
	value       string
	description string
}

var defaults = map[string]defaultRate{
	KeyBasePricePerTape:       {"25", "Price per tape"},
	KeyPricePerHour:           {"10", "Price per hour of footage"},
	KeyReturnShipping:         {"5", "Flat fee for returning tapes"},
	KeyRushMultiplier:         {"0.5", "Rush surcharge as a fraction of the subtotal"},
	KeyDVDPerDisc:             {"10", "Price per DVD copy"},
	KeyUSBPrice:               {"15", "USB drive add-on"},
	KeyCloudPrice:             {"10", "Cloud link add-on"},
	KeyTurnaroundDaysStandard: {"21", "Standard turnaround in days"},
	KeyTurnaroundDaysRush:     {"7", "Rush turnaround in days"},
}

// formatKeys maps output formats to the rate used when availability carries no price.
var formatKeys = map[string]string{
	"dvd":   KeyDVDPerDisc,
	"usb":   KeyUSBPrice,
	"cloud": KeyCloudPrice,
}

// Default returns the built-in value for key, or zero for unknown keys.
func Default(key string) decimal.Decimal {
	d, ok := defaults[key]
	if !ok {
		return decimal.Zero
	}
	return decimal.RequireFromString(d.value)
}

// Keys lists every rate key with its default value and description.
func Keys() map[string][2]string {
	out := make(map[string][2]string, len(defaults))
	for k, d := range defaults {
		out[k] = [2]string{d.value, d.description}
	}
	return out
}

// Rates is a snapshot of the pricing_configs table.
type Rates map[string]string

// Get returns the configured rate, falling back to the default when the key
// is missing, unparseable or negative.
func (r Rates) Get(key string) decimal.Decimal {
	if raw, ok := r[key]; ok {
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err == nil && !v.IsNegative() {
			return v
		}
	}
	return Default(key)
}

// ParseRate validates an admin supplied rate value.
func ParseRate(raw string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || v.IsNegative() {
		return decimal.Zero, false
	}
	return v, true
}

type Input struct {
	TapeFormats     map[string]int
	EstimatedHours  int
	OutputFormats   []string
	DVDQuantity     int
	TapeHandling    string
	ProcessingSpeed string
}

// TotalTapes sums the per-format quantities, ignoring negative values.
func (in Input) TotalTapes() int {
	total := 0
	for _, qty := range in.TapeFormats {
		if qty > 0 {
			total += qty
		}
	}
	return total
}

type LineItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	RushFee  decimal.Decimal `json:"rush_fee"`
	Total    decimal.Decimal `json:"total"`
	Lines    []LineItem      `json:"lines"`
}

// Calculate prices an order. outputPrices holds the active per-format prices
// from product availability and takes precedence over the rate table.
// It never fails: unknown line items contribute nothing.
func Calculate(in Input, rates Rates, outputPrices map[string]decimal.Decimal) Quote {
	var lines []LineItem

	tapes := decimal.NewFromInt(int64(in.TotalTapes()))
	lines = append(lines, LineItem{Name: "tapes", Amount: tapes.Mul(rates.Get(KeyBasePricePerTape))})

	hours := in.EstimatedHours
	if hours < 0 {
		hours = 0
	}
	lines = append(lines, LineItem{Name: "hours", Amount: decimal.NewFromInt(int64(hours)).Mul(rates.Get(KeyPricePerHour))})

	seen := make(map[string]bool, len(in.OutputFormats))
	for _, raw := range in.OutputFormats {
		format := strings.ToLower(strings.TrimSpace(raw))
		if format == "" || format == IncludedFormat || seen[format] {
			continue
		}
		seen[format] = true

		price, ok := outputPrices[format]
		if !ok {
			key, known := formatKeys[format]
			if !known {
				continue
			}
			price = rates.Get(key)
		}

		if format == "dvd" {
			qty := in.DVDQuantity
			if qty < 1 {
				qty = 1
			}
			price = price.Mul(decimal.NewFromInt(int64(qty)))
		}
		lines = append(lines, LineItem{Name: format, Amount: price})
	}

	if in.TapeHandling == HandlingReturn {
		lines = append(lines, LineItem{Name: "return_shipping", Amount: rates.Get(KeyReturnShipping)})
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount)
	}
	subtotal = subtotal.Round(2)

	rushFee := decimal.Zero
	if in.ProcessingSpeed == SpeedRush {
		rushFee = subtotal.Mul(rates.Get(KeyRushMultiplier)).Round(2)
	}

	return Quote{
		Subtotal: subtotal,
		RushFee:  rushFee,
		Total:    subtotal.Add(rushFee),
		Lines:    lines,
	}
}

// TurnaroundDays returns the promised processing time for the chosen speed.
func TurnaroundDays(speed string, rates Rates) int {
	key := KeyTurnaroundDaysStandard
	if speed == SpeedRush {
		key = KeyTurnaroundDaysRush
	}
	return int(rates.Get(key).IntPart())
}
