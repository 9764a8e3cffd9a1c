package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"expense-wallet/internal/models"
)

// Endpoint paths relative to the base URL.
const (
	pathRegister       = "api/users/"
	pathLogin          = "login/"
	pathLogout         = "logout/"
	pathProcessReceipt = "api/process-receipt/"
	pathReceipts       = "api/receipts/"
	pathBudgets        = "api/budgets/"
	pathBudgetReport   = "api/budget-report/"
)

// ImageField is the multipart field that carries a receipt image.
const ImageField = "image"

// RegisterUser creates an account. It is the only call sent without credentials.
func (c *Client) RegisterUser(ctx context.Context, u models.User) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPost, pathRegister, u, &out); err != nil {
		return nil, err
	}
	out.Password = ""
	return &out, nil
}

// Login exchanges credentials for a login response carrying the token.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	out := models.LoginResponse{}
	if err := c.do(ctx, http.MethodPost, pathLogin, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

// ProcessReceipt uploads a JPEG image for parsing and returns the parsed receipt.
func (c *Client) ProcessReceipt(ctx context.Context, filename string, image io.Reader) (*models.Receipt, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, ImageField, escapeQuotes(filename)))
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("read receipt image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPost, pathProcessReceipt, bytes.NewReader(buf.Bytes()), w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out models.Receipt
	if err := c.decode(resp, pathProcessReceipt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReceipts returns the current user's receipts.
func (c *Client) ListReceipts(ctx context.Context) ([]models.Receipt, error) {
	var out []models.Receipt
	if err := c.do(ctx, http.MethodGet, pathReceipts, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReceipt applies a partial update to a receipt.
func (c *Client) UpdateReceipt(ctx context.Context, id string, fields map[string]any) (*models.Receipt, error) {
	var out models.Receipt
	if err := c.do(ctx, http.MethodPatch, pathReceipts+url.PathEscape(id)+"/", fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBudget creates a budget and returns it with its assigned id.
func (c *Client) CreateBudget(ctx context.Context, b models.Budget) (*models.Budget, error) {
	if b.Receipts == nil {
		b.Receipts = []models.Receipt{}
	}
	if b.FilterCategories == nil {
		b.FilterCategories = []string{}
	}
	var out models.Budget
	if err := c.do(ctx, http.MethodPost, pathBudgets, b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBudgets returns the current user's budgets.
func (c *Client) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	var out []models.Budget
	if err := c.do(ctx, http.MethodGet, pathBudgets, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBudget deletes a budget. The backend answers 204 with no body.
func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathBudgets+url.PathEscape(id)+"/", nil, nil)
}

// GetBudget fetches one budget. The path has no trailing slash.
func (c *Client) GetBudget(ctx context.Context, id string) (*models.Budget, error) {
	var out models.Budget
	if err := c.do(ctx, http.MethodGet, pathBudgets+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBudgetReport fetches the aggregated report for a budget.
func (c *Client) GetBudgetReport(ctx context.Context, budgetID string) (*models.BudgetReport, error) {
	var out models.BudgetReport
	if err := c.do(ctx, http.MethodGet, pathBudgetReport+url.PathEscape(budgetID)+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadBudgetReport streams the spreadsheet export of a budget report.
// The caller must close the returned reader.
func (c *Client) DownloadBudgetReport(ctx context.Context, budgetID string) (io.ReadCloser, error) {
	resp, err := c.send(ctx, http.MethodGet, pathBudgetReport+url.PathEscape(budgetID)+"/xlsx/", nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
