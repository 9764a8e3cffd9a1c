package screens

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"expense-wallet/internal/api"
	"expense-wallet/internal/models"

	"github.com/shopspring/decimal"
)

// Display texts of the budget screens.
const (
	MsgNoBudgets       = "No budgets available. Create a new budget!"
	MsgOverLimit       = "Spending amount has exceeded the Limit"
	MsgBudgetDeleted   = "Budget deleted successfully."
	MsgDeleteFailed    = "Failed to delete budget."
	MsgFillAllFields   = "Please fill in all fields."
	MsgNoBudgetReceipt = "No receipts found for this budget."
)

// BudgetItem is a budget as shown in lists.
type BudgetItem struct {
	models.Budget
	IDString  string
	OverLimit bool
	Remaining decimal.Decimal
	// Used is current spending as a percentage of the limit.
	Used float64
}

func newBudgetItem(b models.Budget) BudgetItem {
	item := BudgetItem{
		Budget:    b,
		OverLimit: b.OverLimit(),
		Remaining: b.Remaining(),
	}
	if b.ID != nil {
		item.IDString = strconv.FormatInt(*b.ID, 10)
	}
	if b.LimitAmount.IsPositive() {
		item.Used = b.CurrentSpending.Div(b.LimitAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return item
}

// BudgetListData is the content of the budget list screen.
type BudgetListData struct {
	Items []BudgetItem
	// Hint is shown instead of the list when it is empty.
	Hint string
}

// BudgetList lists the user's budgets.
type BudgetList struct {
	backend Backend
	view    View[BudgetListData]
}

// NewBudgetList returns the budget list controller.
func NewBudgetList(b Backend) *BudgetList {
	return &BudgetList{backend: b}
}

// View returns the list state.
func (c *BudgetList) View() *View[BudgetListData] { return &c.view }

// Load fetches the budgets.
func (c *BudgetList) Load(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.view, "Failed to load budgets", func(ctx context.Context) (BudgetListData, error) {
		budgets, err := c.backend.ListBudgets(ctx)
		if err != nil {
			return BudgetListData{}, err
		}
		data := BudgetListData{Items: make([]BudgetItem, 0, len(budgets))}
		for _, b := range budgets {
			data.Items = append(data.Items, newBudgetItem(b))
		}
		if len(data.Items) == 0 {
			data.Hint = MsgNoBudgets
		}
		return data, nil
	})
}

// Close drops any in-flight load.
func (c *BudgetList) Close() { c.view.Invalidate() }

// BudgetDetailData is the content of the budget detail screen.
type BudgetDetailData struct {
	BudgetItem
	// Warning is set when spending exceeds the limit.
	Warning string
	// Hint is shown when the budget has no receipts.
	Hint string
}

// BudgetDetail shows one budget and deletes it on request.
type BudgetDetail struct {
	backend  Backend
	budgetID string
	view     View[BudgetDetailData]
	actions  View[Outcome]
}

// NewBudgetDetail returns the controller for budgetID.
func NewBudgetDetail(b Backend, budgetID string) *BudgetDetail {
	return &BudgetDetail{backend: b, budgetID: budgetID}
}

// View returns the budget state.
func (c *BudgetDetail) View() *View[BudgetDetailData] { return &c.view }

// Actions returns the state of the delete action.
func (c *BudgetDetail) Actions() *View[Outcome] { return &c.actions }

// Load fetches the budget.
func (c *BudgetDetail) Load(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.view, "Failed to load budget", func(ctx context.Context) (BudgetDetailData, error) {
		b, err := c.backend.GetBudget(ctx, c.budgetID)
		if err != nil {
			return BudgetDetailData{}, err
		}
		data := BudgetDetailData{BudgetItem: newBudgetItem(*b)}
		if data.OverLimit {
			data.Warning = MsgOverLimit
		}
		if len(b.Receipts) == 0 {
			data.Hint = MsgNoBudgetReceipt
		}
		return data, nil
	})
}

// Delete removes the budget and routes back to the budget list.
func (c *BudgetDetail) Delete(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.actions, MsgDeleteFailed, func(ctx context.Context) (Outcome, error) {
		if err := c.backend.DeleteBudget(ctx, c.budgetID); err != nil {
			if api.IsTransport(err) {
				return Outcome{}, err
			}
			return Outcome{}, &Error{Message: MsgDeleteFailed, Err: err}
		}
		return Outcome{Message: MsgBudgetDeleted, Route: RouteBudgets}, nil
	})
}

// ReportRoute is where the report button leads.
func (c *BudgetDetail) ReportRoute() string { return BudgetReportRoute(c.budgetID) }

// Close drops any in-flight call.
func (c *BudgetDetail) Close() {
	c.view.Invalidate()
	c.actions.Invalidate()
}

// BudgetForm is the input of the create budget screen.
type BudgetForm struct {
	Name       string
	Limit      string
	StartDate  string
	EndDate    string
	Categories []string
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks the form and returns the budget it describes, without the user id.
func (f BudgetForm) Validate() (models.Budget, error) {
	limit := strings.TrimSpace(f.Limit)
	start := strings.TrimSpace(f.StartDate)
	end := strings.TrimSpace(f.EndDate)
	if limit == "" || start == "" || end == "" {
		return models.Budget{}, NewValidationError(MsgFillAllFields)
	}

	amount, err := decimal.NewFromString(limit)
	if err != nil {
		return models.Budget{}, NewValidationError("Limit amount must be a number.")
	}
	if amount.IsNegative() {
		return models.Budget{}, NewValidationError("Limit amount must not be negative.")
	}
	for _, d := range []string{start, end} {
		if !isoDate.MatchString(d) {
			return models.Budget{}, NewValidationError(fmt.Sprintf("Invalid date %q, use YYYY-MM-DD.", d))
		}
	}

	cats := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		name, ok := models.NormalizeCategory(c)
		if !ok {
			return models.Budget{}, NewValidationError(fmt.Sprintf("Unknown category %q.", c))
		}
		cats = append(cats, name)
	}

	return models.Budget{
		Name:             strings.TrimSpace(f.Name),
		FilterCategories: cats,
		LimitAmount:      amount,
		CurrentSpending:  decimal.Zero,
		StartDate:        start,
		EndDate:          end,
		Receipts:         []models.Receipt{},
	}, nil
}

// CreateBudget submits the create budget form.
type CreateBudget struct {
	backend Backend
	users   UserStore
	view    View[Outcome]
}

// NewCreateBudget returns the create budget controller.
func NewCreateBudget(b Backend, users UserStore) *CreateBudget {
	return &CreateBudget{backend: b, users: users}
}

// View returns the submission state.
func (c *CreateBudget) View() *View[Outcome] { return &c.view }

// Submit validates the form and creates the budget for the stored user.
func (c *CreateBudget) Submit(ctx context.Context, f BudgetForm) <-chan struct{} {
	budget, err := f.Validate()
	if err != nil {
		return reject(&c.view, Describe(err, ""))
	}
	return run(ctx, &c.view, "Failed to create budget", func(ctx context.Context) (Outcome, error) {
		uid, err := c.users.UserID()
		if err != nil {
			return Outcome{}, err
		}
		budget.UserID = uid
		created, err := c.backend.CreateBudget(ctx, budget)
		if err != nil {
			return Outcome{}, err
		}
		out := Outcome{Message: "Budget created.", Route: RouteBudgets}
		if created.ID != nil {
			out.ID = strconv.FormatInt(*created.ID, 10)
		}
		return out, nil
	})
}
