package main

import (
	"fmt"
	"io"
	"strings"

	"expense-wallet/internal/models"
	"expense-wallet/internal/screens"

	"github.com/charmbracelet/lipgloss"
)

// renderer prints screen data. Colors are dropped when the output is not a terminal.
type renderer struct {
	w     io.Writer
	title lipgloss.Style
	warn  lipgloss.Style
	hint  lipgloss.Style
	ok    lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	r := lipgloss.NewRenderer(w)
	return &renderer{
		w:     w,
		title: r.NewStyle().Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
		hint:  r.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
	}
}

func (r *renderer) message(msg string) {
	if msg != "" {
		fmt.Fprintln(r.w, r.ok.Render(msg))
	}
}

func (r *renderer) budgets(data screens.BudgetListData) {
	fmt.Fprintln(r.w, r.title.Render("Budgets"))
	if data.Hint != "" {
		fmt.Fprintln(r.w, r.hint.Render(data.Hint))
		return
	}
	for _, b := range data.Items {
		line := fmt.Sprintf("#%-4s %-20s %10s / %-10s %5.1f%%", b.IDString, b.Name,
			b.CurrentSpending.StringFixed(2), b.LimitAmount.StringFixed(2), b.Used)
		if b.OverLimit {
			line = r.warn.Render(line + "  OVER LIMIT")
		}
		fmt.Fprintln(r.w, line)
	}
}

func (r *renderer) budget(data screens.BudgetDetailData) {
	fmt.Fprintln(r.w, r.title.Render("Budget Details"))
	if data.Warning != "" {
		fmt.Fprintln(r.w, r.warn.Render(data.Warning))
	}
	fmt.Fprintf(r.w, "Name: %s\n", data.Name)
	fmt.Fprintf(r.w, "Category: %s\n", strings.Join(data.FilterCategories, ", "))
	fmt.Fprintf(r.w, "Limit: %s\n", data.LimitAmount.StringFixed(2))
	fmt.Fprintf(r.w, "Current Spending: %s\n", data.CurrentSpending.StringFixed(2))
	fmt.Fprintf(r.w, "Start Date: %s\n", data.StartDate)
	fmt.Fprintf(r.w, "End Date: %s\n", data.EndDate)
	fmt.Fprintln(r.w, r.title.Render("Receipts in this Budget"))
	if data.Hint != "" {
		fmt.Fprintln(r.w, r.hint.Render(data.Hint))
	}
	for _, rec := range data.Receipts {
		r.receiptLine(rec)
	}
}

func (r *renderer) report(data screens.ReportData) {
	fmt.Fprintln(r.w, r.title.Render("Budget Report"))
	fmt.Fprintf(r.w, "Time Period: %s\n", data.Period)
	fmt.Fprintf(r.w, "Total Limit: %s\n", data.Budget.LimitAmount.StringFixed(2))
	spent := fmt.Sprintf("Total Spent: %s", data.TotalSpent.StringFixed(2))
	if data.Budget.OverLimit {
		spent = r.warn.Render(spent)
	}
	fmt.Fprintln(r.w, spent)
	fmt.Fprintf(r.w, "Total Items: %d\n", data.TotalItems)
	for _, c := range data.Categories {
		fmt.Fprintf(r.w, "  %-16s %10s %5.1f%%  %d items\n", c.Category, c.Total.StringFixed(2), c.Percentage, c.Count)
	}
}

func (r *renderer) receipts(data screens.ReceiptListData) {
	fmt.Fprintln(r.w, r.title.Render("Receipts"))
	if data.Hint != "" {
		fmt.Fprintln(r.w, r.hint.Render(data.Hint))
		return
	}
	for _, g := range data.Groups {
		fmt.Fprintf(r.w, "%s  %s\n", r.title.Render(g.Title), g.Total.StringFixed(2))
		for _, rec := range g.Items {
			fmt.Fprintf(r.w, "  #%-4s %-20s %10s  %s\n", rec.IDString, rec.Merchant, rec.Total, rec.Category)
		}
	}
}

func (r *renderer) receiptLine(rec models.Receipt) {
	total := "0.00"
	if rec.TotalAmount.Valid {
		total = rec.TotalAmount.Decimal.StringFixed(2)
	}
	fmt.Fprintf(r.w, "  #%-4d %-20s %10s  %s\n", rec.ID, rec.MerchantName(), total, rec.CategoryName())
}

func (r *renderer) receipt(data screens.ReceiptDetailData) {
	fmt.Fprintln(r.w, r.title.Render("Receipt Details"))
	fmt.Fprintf(r.w, "Merchant: %s\n", data.Merchant)
	fmt.Fprintf(r.w, "Total Amount: %s\n", data.Total)
	fmt.Fprintf(r.w, "Uploaded: %s\n", data.UploadedAt)
	fmt.Fprintf(r.w, "Category: %s\n", data.Category)
	if len(data.Items) > 0 {
		fmt.Fprintln(r.w, "Items:")
	}
	for _, it := range data.Items {
		if it.Quantity != "" {
			fmt.Fprintf(r.w, "  - %s x%s: %s\n", it.Description, it.Quantity, it.Price)
			continue
		}
		fmt.Fprintf(r.w, "  - %s: %s\n", it.Description, it.Price)
	}
}
