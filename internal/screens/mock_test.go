package screens

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"expense-wallet/internal/api"
	"expense-wallet/internal/models"
)

var (
	errNetwork = &api.TransportError{Method: http.MethodGet, Path: "api/", Err: errors.New("connection refused")}
	errServer  = &api.HTTPError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"}
)

// MockBackend serves canned data. Set err to make every call fail.
type MockBackend struct {
	mu sync.Mutex

	budgets  []models.Budget
	receipts []models.Receipt
	report   *models.BudgetReport
	download []byte
	err      error

	// listGate, when set, delays ListBudgets until a value is received.
	listGate chan []models.Budget

	created   *models.Budget
	deleted   []string
	patched   map[string]any
	uploaded  []byte
	filename  string
	registers []models.User
}

func (m *MockBackend) fail() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MockBackend) RegisterUser(ctx context.Context, u models.User) (*models.User, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers = append(m.registers, u)
	id := int64(len(m.registers) + 40)
	return &models.User{ID: &id, Email: u.Email, FullName: u.FullName, DateOfBirth: u.DateOfBirth}, nil
}

func (m *MockBackend) ProcessReceipt(ctx context.Context, filename string, image io.Reader) (*models.Receipt, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	data, _ := io.ReadAll(image)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded, m.filename = data, filename
	return &models.Receipt{ID: 77}, nil
}

func (m *MockBackend) ListReceipts(ctx context.Context) ([]models.Receipt, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receipts, nil
}

func (m *MockBackend) UpdateReceipt(ctx context.Context, id string, fields map[string]any) (*models.Receipt, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patched = fields
	for _, r := range m.receipts {
		if strconv.FormatInt(r.ID, 10) == id {
			cat := fields["receipt_category"].(string)
			r.Category = &cat
			return &r, nil
		}
	}
	return nil, &api.HTTPError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
}

func (m *MockBackend) CreateBudget(ctx context.Context, b models.Budget) (*models.Budget, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(5)
	b.ID = &id
	m.created = &b
	return &b, nil
}

func (m *MockBackend) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	if m.listGate != nil {
		select {
		case b := <-m.listGate:
			return b, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return nil, errors.New("gate timeout")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgets, nil
}

func (m *MockBackend) DeleteBudget(ctx context.Context, id string) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MockBackend) GetBudget(ctx context.Context, id string) (*models.Budget, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.budgets) == 0 {
		return nil, &api.HTTPError{StatusCode: http.StatusNotFound, Status: "404 Not Found", Message: "No Budget matches the given query."}
	}
	b := m.budgets[0]
	return &b, nil
}

func (m *MockBackend) GetBudgetReport(ctx context.Context, budgetID string) (*models.BudgetReport, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.report, nil
}

func (m *MockBackend) DownloadBudgetReport(ctx context.Context, budgetID string) (io.ReadCloser, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(m.download)), nil
}

// MockUsers is an in-memory UserStore.
type MockUsers struct {
	id         int64
	shouldFail bool
}

func (m *MockUsers) UserID() (int64, error) {
	if m.shouldFail {
		return 0, errors.New("store closed")
	}
	return m.id, nil
}

func (m *MockUsers) SetUserID(id int64) error {
	if m.shouldFail {
		return errors.New("store closed")
	}
	m.id = id
	return nil
}

// MockSessions returns a fixed error from both calls.
type MockSessions struct {
	err     error
	logins  int
	logouts int
}

func (m *MockSessions) Login(ctx context.Context, email, password string) error {
	m.logins++
	return m.err
}

func (m *MockSessions) Logout(ctx context.Context) error {
	m.logouts++
	return m.err
}

func ptr[T any](v T) *T { return &v }
