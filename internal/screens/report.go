package screens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"expense-wallet/internal/models"

	"github.com/shopspring/decimal"
)

// MsgEmptyDownload is shown when the report export has no content.
const MsgEmptyDownload = "Failed to download file: Empty response"

// ReportCategory is one category row of a budget report.
type ReportCategory struct {
	Category   string
	Total      decimal.Decimal
	Count      int
	Percentage float64
}

// ReportData is the content of the budget report screen.
type ReportData struct {
	Budget     BudgetItem
	Period     string
	TotalSpent decimal.Decimal
	TotalItems int
	Categories []ReportCategory
}

func newReportData(r models.BudgetReport) ReportData {
	data := ReportData{
		Budget:     newBudgetItem(r.Budget),
		Period:     r.Budget.StartDate + " - " + r.Budget.EndDate,
		TotalSpent: r.TotalSpent,
		TotalItems: r.TotalItems,
		Categories: make([]ReportCategory, 0, len(r.CategorySpending)),
	}

	var total decimal.Decimal
	for _, amount := range r.CategorySpending {
		total = total.Add(amount)
	}

	// Calculate percentages
	for cat, amount := range r.CategorySpending {
		percentage := 0.0
		if total.IsPositive() {
			percentage = amount.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		data.Categories = append(data.Categories, ReportCategory{
			Category:   cat,
			Total:      amount,
			Count:      r.CategoryItems[cat],
			Percentage: percentage,
		})
	}
	// Item counts can exist for categories with no spending.
	for cat, count := range r.CategoryItems {
		if _, ok := r.CategorySpending[cat]; !ok {
			data.Categories = append(data.Categories, ReportCategory{Category: cat, Count: count})
		}
	}

	sort.Slice(data.Categories, func(i, j int) bool {
		a, b := data.Categories[i], data.Categories[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})
	return data
}

// BudgetReport shows a budget's report and downloads its spreadsheet export.
type BudgetReport struct {
	backend  Backend
	budgetID string
	view     View[ReportData]
	actions  View[Outcome]
}

// NewBudgetReport returns the report controller for budgetID.
func NewBudgetReport(b Backend, budgetID string) *BudgetReport {
	return &BudgetReport{backend: b, budgetID: budgetID}
}

// View returns the report state.
func (c *BudgetReport) View() *View[ReportData] { return &c.view }

// Actions returns the state of the download action.
func (c *BudgetReport) Actions() *View[Outcome] { return &c.actions }

// Load fetches the report.
func (c *BudgetReport) Load(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.view, "Failed to load report", func(ctx context.Context) (ReportData, error) {
		r, err := c.backend.GetBudgetReport(ctx, c.budgetID)
		if err != nil {
			return ReportData{}, err
		}
		return newReportData(*r), nil
	})
}

// ReportFileName is the file a budget's export is saved as.
func ReportFileName(budgetID string) string {
	return fmt.Sprintf("budget_report_%s.xlsx", budgetID)
}

// Download streams the export into dir. The outcome ID is the written path.
func (c *BudgetReport) Download(ctx context.Context, dir string) <-chan struct{} {
	return run(ctx, &c.actions, "Failed to download file", func(ctx context.Context) (Outcome, error) {
		body, err := c.backend.DownloadBudgetReport(ctx, c.budgetID)
		if err != nil {
			return Outcome{}, err
		}
		defer body.Close()

		path := filepath.Join(dir, ReportFileName(c.budgetID))
		if err := writeFile(path, body); err != nil {
			if errors.Is(err, errEmptyBody) {
				return Outcome{}, &Error{Message: MsgEmptyDownload, Err: err}
			}
			return Outcome{}, err
		}
		return Outcome{Message: "Report saved to " + path, ID: path}, nil
	})
}

var errEmptyBody = errors.New("empty response body")

// writeFile copies r into a temporary file and renames it into place.
// An empty body leaves any existing file at path untouched.
func writeFile(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = errEmptyBody
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Close drops any in-flight call.
func (c *BudgetReport) Close() {
	c.view.Invalidate()
	c.actions.Invalidate()
}
