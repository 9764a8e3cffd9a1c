package screens

import "strings"

// Route names.
const (
	RouteStart         = "start"
	RouteLogin         = "login"
	RouteRegister      = "register"
	RouteMain          = "main"
	RouteScanner       = "scanner"
	RouteReceipts      = "details"
	RouteBudgets       = "budget"
	RouteCreateBudget  = "createBudget"
	RouteReceiptDetail = "receiptDetail/{receiptId}"
	RouteBudgetDetail  = "budgetDetails/{budgetId}"
	RouteBudgetReport  = "budgetReport/{budgetId}"
)

// ReceiptDetailRoute returns the route of one receipt.
func ReceiptDetailRoute(receiptID string) string {
	return strings.Replace(RouteReceiptDetail, "{receiptId}", receiptID, 1)
}

// BudgetDetailRoute returns the route of one budget.
func BudgetDetailRoute(budgetID string) string {
	return strings.Replace(RouteBudgetDetail, "{budgetId}", budgetID, 1)
}

// BudgetReportRoute returns the route of one budget's report.
func BudgetReportRoute(budgetID string) string {
	return strings.Replace(RouteBudgetReport, "{budgetId}", budgetID, 1)
}

// ParseRoute splits a concrete route into its pattern and argument.
func ParseRoute(route string) (pattern, arg string) {
	for _, p := range []string{RouteReceiptDetail, RouteBudgetDetail, RouteBudgetReport} {
		prefix := p[:strings.Index(p, "{")]
		if strings.HasPrefix(route, prefix) && len(route) > len(prefix) {
			return p, strings.TrimPrefix(route, prefix)
		}
	}
	return route, ""
}
