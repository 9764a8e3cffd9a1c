package screens

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"expense-wallet/internal/api"
	"expense-wallet/internal/models"

	"github.com/shopspring/decimal"
)

// Display texts of the receipt screens.
const (
	MsgNoReceipts      = "No receipts available. Add a new one!"
	MsgReceiptNotFound = "Receipt not found"
	MsgUploadFailed    = "Upload failed."
	MsgCategorySaved   = "Category updated."
)

// Layouts the backend uses for upload timestamps.
var uploadLayouts = []string{"02-01-2006", "2006-01-02", time.RFC3339Nano, time.RFC3339}

func parseUploadDate(s string) (time.Time, bool) {
	for _, layout := range uploadLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ReceiptItem is a receipt as shown in lists.
type ReceiptItem struct {
	models.Receipt
	IDString string
	Merchant string
	Category string
	Total    string
}

func newReceiptItem(r models.Receipt) ReceiptItem {
	total := "0.00"
	if r.TotalAmount.Valid {
		total = r.TotalAmount.Decimal.StringFixed(2)
	}
	return ReceiptItem{
		Receipt:  r,
		IDString: strconv.FormatInt(r.ID, 10),
		Merchant: r.MerchantName(),
		Category: r.CategoryName(),
		Total:    total,
	}
}

// ReceiptGroup groups receipts by upload day.
type ReceiptGroup struct {
	Title string
	Date  string
	Total decimal.Decimal
	Items []ReceiptItem
}

// ReceiptListData is the content of the receipt list screen.
type ReceiptListData struct {
	Total  decimal.Decimal
	Groups []ReceiptGroup
	Hint   string
}

// ReceiptList lists the user's receipts grouped by day.
type ReceiptList struct {
	backend Backend
	view    View[ReceiptListData]
	now     func() time.Time
}

// NewReceiptList returns the receipt list controller.
func NewReceiptList(b Backend) *ReceiptList {
	return &ReceiptList{backend: b, now: time.Now}
}

// View returns the list state.
func (c *ReceiptList) View() *View[ReceiptListData] { return &c.view }

// Load fetches the receipts.
func (c *ReceiptList) Load(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.view, "Failed to load receipts", func(ctx context.Context) (ReceiptListData, error) {
		receipts, err := c.backend.ListReceipts(ctx)
		if err != nil {
			return ReceiptListData{}, err
		}
		return groupReceipts(receipts, c.now()), nil
	})
}

// Close drops any in-flight load.
func (c *ReceiptList) Close() { c.view.Invalidate() }

func groupReceipts(receipts []models.Receipt, now time.Time) ReceiptListData {
	groupsMap := make(map[string]*ReceiptGroup)
	var totalSpent decimal.Decimal

	for _, r := range receipts {
		dateStr, title := "", "UNKNOWN DATE"
		if t, ok := parseUploadDate(r.UploadedAt); ok {
			dateStr = t.Format("2006-01-02")
			title = formatGroupTitle(t, now)
		}
		if _, ok := groupsMap[dateStr]; !ok {
			groupsMap[dateStr] = &ReceiptGroup{Date: dateStr, Title: title}
		}
		group := groupsMap[dateStr]
		if r.TotalAmount.Valid {
			group.Total = group.Total.Add(r.TotalAmount.Decimal)
			totalSpent = totalSpent.Add(r.TotalAmount.Decimal)
		}
		group.Items = append(group.Items, newReceiptItem(r))
	}

	groups := make([]ReceiptGroup, 0, len(groupsMap))
	for _, g := range groupsMap {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })

	data := ReceiptListData{Total: totalSpent, Groups: groups}
	if len(receipts) == 0 {
		data.Hint = MsgNoReceipts
	}
	return data
}

func formatGroupTitle(date, now time.Time) string {
	dateStr := date.Format("2006-01-02")
	nowStr := now.Format("2006-01-02")

	if dateStr == nowStr {
		return "TODAY"
	}
	yesterdayStr := now.AddDate(0, 0, -1).Format("2006-01-02")
	if dateStr == yesterdayStr {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}

// LineItem is a parsed line of a receipt.
type LineItem struct {
	Description string
	Price       string
	Quantity    string
}

// ReceiptDetailData is the content of the receipt detail screen.
type ReceiptDetailData struct {
	ReceiptItem
	Items []LineItem
}

func newReceiptDetailData(r models.Receipt) ReceiptDetailData {
	data := ReceiptDetailData{ReceiptItem: newReceiptItem(r)}
	for _, p := range r.ParsedItems {
		item := LineItem{Description: p.Description.String(), Price: p.TotalPrice.String()}
		if p.Quantity != nil {
			item.Quantity = p.Quantity.String()
		}
		data.Items = append(data.Items, item)
	}
	return data
}

// ReceiptDetail shows one receipt and changes its category.
type ReceiptDetail struct {
	backend   Backend
	receiptID string
	view      View[ReceiptDetailData]
	actions   View[Outcome]
}

// NewReceiptDetail returns the controller for receiptID.
func NewReceiptDetail(b Backend, receiptID string) *ReceiptDetail {
	return &ReceiptDetail{backend: b, receiptID: receiptID}
}

// View returns the receipt state.
func (c *ReceiptDetail) View() *View[ReceiptDetailData] { return &c.view }

// Actions returns the state of the category update.
func (c *ReceiptDetail) Actions() *View[Outcome] { return &c.actions }

// Load fetches the receipt list and selects this receipt from it.
func (c *ReceiptDetail) Load(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.view, "Failed to load receipt", func(ctx context.Context) (ReceiptDetailData, error) {
		receipts, err := c.backend.ListReceipts(ctx)
		if err != nil {
			return ReceiptDetailData{}, err
		}
		for _, r := range receipts {
			if strconv.FormatInt(r.ID, 10) == c.receiptID {
				return newReceiptDetailData(r), nil
			}
		}
		return ReceiptDetailData{}, &Error{Message: MsgReceiptNotFound, Err: ErrNotFound}
	})
}

// UpdateCategory sets the receipt category.
func (c *ReceiptDetail) UpdateCategory(ctx context.Context, category string) <-chan struct{} {
	name, ok := models.NormalizeCategory(category)
	if !ok {
		return reject(&c.actions, fmt.Sprintf("Unknown category %q.", category))
	}
	return run(ctx, &c.actions, "Failed to update category", func(ctx context.Context) (Outcome, error) {
		updated, err := c.backend.UpdateReceipt(ctx, c.receiptID, map[string]any{"receipt_category": name})
		if err != nil {
			return Outcome{}, err
		}
		c.view.publish(State[ReceiptDetailData]{Status: StatusLoaded, Data: newReceiptDetailData(*updated)})
		return Outcome{Message: MsgCategorySaved, ID: c.receiptID}, nil
	})
}

// Close drops any in-flight call.
func (c *ReceiptDetail) Close() {
	c.view.Invalidate()
	c.actions.Invalidate()
}

// ReceiptScanner uploads receipt images.
type ReceiptScanner struct {
	backend Backend
	view    View[Outcome]
	now     func() time.Time
}

// NewReceiptScanner returns the scanner controller.
func NewReceiptScanner(b Backend) *ReceiptScanner {
	return &ReceiptScanner{backend: b, now: time.Now}
}

// View returns the upload state.
func (c *ReceiptScanner) View() *View[Outcome] { return &c.view }

// UploadFileName names an upload taken at t.
func UploadFileName(t time.Time) string {
	return fmt.Sprintf("receipt_%d.jpg", t.UnixMilli())
}

// Upload reads the JPEG at path and uploads it. On success the outcome routes to the new receipt.
func (c *ReceiptScanner) Upload(ctx context.Context, path string) <-chan struct{} {
	image, err := os.ReadFile(path)
	if err != nil {
		return reject(&c.view, "Failed to read image: "+err.Error())
	}
	return c.UploadImage(ctx, image)
}

// UploadImage uploads JPEG bytes.
func (c *ReceiptScanner) UploadImage(ctx context.Context, image []byte) <-chan struct{} {
	if len(image) == 0 {
		return reject(&c.view, "No image captured.")
	}
	name := UploadFileName(c.now())
	return run(ctx, &c.view, MsgUploadFailed, func(ctx context.Context) (Outcome, error) {
		r, err := c.backend.ProcessReceipt(ctx, name, bytes.NewReader(image))
		if err != nil {
			if api.IsTransport(err) {
				return Outcome{}, err
			}
			return Outcome{}, &Error{Message: MsgUploadFailed, Err: err}
		}
		id := strconv.FormatInt(r.ID, 10)
		return Outcome{Message: "Receipt uploaded.", Route: ReceiptDetailRoute(id), ID: id}, nil
	})
}
