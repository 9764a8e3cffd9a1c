package screens

import (
	"context"
	"io"

	"expense-wallet/internal/models"
)

// Backend is the part of the API client the screens call.
type Backend interface {
	RegisterUser(ctx context.Context, u models.User) (*models.User, error)
	ProcessReceipt(ctx context.Context, filename string, image io.Reader) (*models.Receipt, error)
	ListReceipts(ctx context.Context) ([]models.Receipt, error)
	UpdateReceipt(ctx context.Context, id string, fields map[string]any) (*models.Receipt, error)
	CreateBudget(ctx context.Context, b models.Budget) (*models.Budget, error)
	ListBudgets(ctx context.Context) ([]models.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
	GetBudget(ctx context.Context, id string) (*models.Budget, error)
	GetBudgetReport(ctx context.Context, budgetID string) (*models.BudgetReport, error)
	DownloadBudgetReport(ctx context.Context, budgetID string) (io.ReadCloser, error)
}

// Sessions signs the user in and out.
type Sessions interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

// UserStore keeps the id of the signed-up user.
type UserStore interface {
	UserID() (int64, error)
	SetUserID(id int64) error
}
