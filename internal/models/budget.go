package models

import "github.com/shopspring/decimal"

// Budget represents a spending limit over a date range and a set of categories.
type Budget struct {
	ID               *int64          `json:"id,omitempty"`
	UserID           int64           `json:"user"`
	Name             string          `json:"name"`
	FilterCategories []string        `json:"filter_categories"`
	LimitAmount      decimal.Decimal `json:"limit_amount"`
	CurrentSpending  decimal.Decimal `json:"current_spending"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	Receipts         []Receipt       `json:"receipts"`
}

// OverLimit reports whether current spending exceeds the limit.
func (b Budget) OverLimit() bool {
	return b.CurrentSpending.GreaterThan(b.LimitAmount)
}

// Remaining returns the amount left before the limit is reached. It is negative when over limit.
func (b Budget) Remaining() decimal.Decimal {
	return b.LimitAmount.Sub(b.CurrentSpending)
}

// BudgetReport is the server-side aggregation of a budget's receipts.
type BudgetReport struct {
	Budget           Budget                     `json:"budget"`
	TotalSpent       decimal.Decimal            `json:"total_spent"`
	CategorySpending map[string]decimal.Decimal `json:"category_spending"`
	TotalItems       int                        `json:"total_items"`
	CategoryItems    map[string]int             `json:"category_items"`
}
