// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the REST backend, the durable session store and alert delivery.
package port

import (
	"context"

	"github.com/boddenberg/spendsense-go/internal/domain"
)

// UserAPI covers the backend's account endpoints.
type UserAPI interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.LoginResponse, error)
	Me(ctx context.Context, creds Credentials) (*domain.User, error)
	DeleteMe(ctx context.Context, creds Credentials) error
}

// CategoryAPI covers the backend's category endpoints.
type CategoryAPI interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, creds Credentials, name string) (*domain.Category, error)
}

// ExpenseAPI covers the backend's expense endpoints.
type ExpenseAPI interface {
	CreateExpense(ctx context.Context, creds Credentials, req *domain.CreateExpenseRequest) (*domain.Expense, error)
	ListExpenses(ctx context.Context, creds Credentials) ([]domain.Expense, error)
	UpdateExpense(ctx context.Context, creds Credentials, id domain.ID, req *domain.UpdateExpenseRequest) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, creds Credentials, id domain.ID) error
	ExpenseSummary(ctx context.Context, creds Credentials, q domain.SummaryQuery) (*domain.ExpenseSummary, error)
}

// BudgetAPI covers the backend's budget endpoints.
type BudgetAPI interface {
	CreateBudget(ctx context.Context, creds Credentials, req *domain.CreateBudgetRequest) (*domain.Budget, error)
	ListBudgets(ctx context.Context, creds Credentials, activeOnly bool) ([]domain.Budget, error)
	GetBudget(ctx context.Context, creds Credentials, id domain.ID) (*domain.Budget, error)
	UpdateBudget(ctx context.Context, creds Credentials, id domain.ID, req *domain.UpdateBudgetRequest) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, creds Credentials, id domain.ID) error
	BudgetStatus(ctx context.Context, creds Credentials) ([]domain.RemoteBudgetStatus, error)
}

// AIQuerier invokes the backend's AI assistant.
type AIQuerier interface {
	QueryAI(ctx context.Context, creds Credentials, req *domain.AIQueryRequest) (*domain.AIResponse, error)
}

// Backend is the full REST surface.
type Backend interface {
	UserAPI
	CategoryAPI
	ExpenseAPI
	BudgetAPI
	AIQuerier
}

// Credentials authorize one backend call.
type Credentials struct {
	Token     string
	TokenType string
}

// SessionStore persists the session on the device.
// Load returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Clear(ctx context.Context) error
}

// Notifier delivers budget alerts.
type Notifier interface {
	Notify(ctx context.Context, alert domain.BudgetAlert) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
}
