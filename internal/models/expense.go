package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category names accepted by the backend for receipts and budget filters.
const (
	CategoryMeal           = "Meal"
	CategorySupplies       = "Supplies"
	CategoryHotel          = "Hotel"
	CategoryFuel           = "Fuel"
	CategoryTransportation = "Transportation"
	CategoryCommunication  = "Communication"
	CategorySubscriptions  = "Subscriptions"
	CategoryEntertainment  = "Entertainment"
	CategoryTraining       = "Training"
	CategoryHealthcare     = "Healthcare"
	CategoryOther          = "Other"
)

// Categories lists every expense category in display order.
var Categories = []string{
	CategoryMeal,
	CategorySupplies,
	CategoryHotel,
	CategoryFuel,
	CategoryTransportation,
	CategoryCommunication,
	CategorySubscriptions,
	CategoryEntertainment,
	CategoryTraining,
	CategoryHealthcare,
	CategoryOther,
}

// NormalizeCategory returns the canonical spelling of a category name, matched case-insensitively.
func NormalizeCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Receipt represents an uploaded receipt and the fields the backend parsed from it.
type Receipt struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user"`
	BudgetID        *int64              `json:"budget,omitempty"`
	ImageURL        *string             `json:"image_url"`
	Merchant        *string             `json:"merchant"`
	TotalAmount     decimal.NullDecimal `json:"total_amount"`
	TransactionDate *string             `json:"transaction_date"`
	ParsedItems     []ParsedItem        `json:"parsed_items"`
	Category        *string             `json:"receipt_category"`
	UploadedAt      string              `json:"uploaded_at"`
}

// MerchantName returns the merchant or a placeholder when the backend could not read one.
func (r Receipt) MerchantName() string {
	if r.Merchant == nil || *r.Merchant == "" {
		return "Unknown merchant"
	}
	return *r.Merchant
}

// CategoryName returns the receipt category or Other when none is set.
func (r Receipt) CategoryName() string {
	if r.Category == nil || *r.Category == "" {
		return CategoryOther
	}
	return *r.Category
}

// ParsedItem is a line item extracted from a receipt image.
type ParsedItem struct {
	Description ValueWrapper  `json:"description"`
	TotalPrice  ValueWrapper  `json:"total_price"`
	Quantity    *ValueWrapper `json:"quantity,omitempty"`
}

// ValueWrapper carries a single extracted value exactly as the backend returned it.
type ValueWrapper struct {
	Value string `json:"value"`
}

// String returns the raw value.
func (v ValueWrapper) String() string {
	return v.Value
}

// Decimal parses the value as an amount, tolerating currency symbols and thousands separators.
func (v ValueWrapper) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(v.Value)
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	return decimal.NewFromString(s)
}
