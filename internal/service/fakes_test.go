package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/infra/sessionstore"
	"github.com/boddenberg/spendsense-go/internal/port"
	"github.com/boddenberg/spendsense-go/internal/service"

	"go.uber.org/zap"
)

// --- Fake backend ---

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	loginErr error
	token    string
	meErr    error
	user     *domain.User

	categories []domain.Category
	expenses   []domain.Expense
	budgets    []domain.Budget
	remote     []domain.RemoteBudgetStatus
	listErr    error

	lastCreds   port.Credentials
	lastExpense *domain.CreateExpenseRequest
	lastBudget  *domain.CreateBudgetRequest
	lastAI      *domain.AIQueryRequest
	aiAnswer    string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls: make(map[string]int),
		token: "tok-1",
		user:  &domain.User{ID: "1", Name: "Ana", Email: "ana@example.com"},
	}
}

func (f *fakeBackend) hit(name string, creds *port.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if creds != nil {
		f.lastCreds = *creds
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) Register(_ context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	f.hit("register", nil)
	return &domain.User{ID: "2", Name: req.Name, Email: req.Email}, nil
}

func (f *fakeBackend) Login(_ context.Context, _, _ string) (*domain.LoginResponse, error) {
	f.hit("login", nil)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &domain.LoginResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeBackend) Me(_ context.Context, creds port.Credentials) (*domain.User, error) {
	f.hit("me", &creds)
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

func (f *fakeBackend) DeleteMe(_ context.Context, creds port.Credentials) error {
	f.hit("delete_me", &creds)
	return nil
}

func (f *fakeBackend) ListCategories(_ context.Context) ([]domain.Category, error) {
	f.hit("categories", nil)
	return f.categories, nil
}

func (f *fakeBackend) CreateCategory(_ context.Context, creds port.Credentials, name string) (*domain.Category, error) {
	f.hit("create_category", &creds)
	return &domain.Category{ID: "99", Name: name}, nil
}

func (f *fakeBackend) CreateExpense(_ context.Context, creds port.Credentials, req *domain.CreateExpenseRequest) (*domain.Expense, error) {
	f.hit("create_expense", &creds)
	f.lastExpense = req
	return &domain.Expense{ID: "10", CategoryID: req.CategoryID}, nil
}

func (f *fakeBackend) ListExpenses(_ context.Context, creds port.Credentials) ([]domain.Expense, error) {
	f.hit("expenses", &creds)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.expenses, nil
}

func (f *fakeBackend) UpdateExpense(_ context.Context, creds port.Credentials, id domain.ID, _ *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	f.hit("update_expense", &creds)
	return &domain.Expense{ID: id}, nil
}

func (f *fakeBackend) DeleteExpense(_ context.Context, creds port.Credentials, _ domain.ID) error {
	f.hit("delete_expense", &creds)
	return nil
}

func (f *fakeBackend) ExpenseSummary(_ context.Context, creds port.Credentials, _ domain.SummaryQuery) (*domain.ExpenseSummary, error) {
	f.hit("summary", &creds)
	return &domain.ExpenseSummary{}, nil
}

func (f *fakeBackend) CreateBudget(_ context.Context, creds port.Credentials, req *domain.CreateBudgetRequest) (*domain.Budget, error) {
	f.hit("create_budget", &creds)
	f.lastBudget = req
	return &domain.Budget{ID: "5", Period: req.Period}, nil
}

func (f *fakeBackend) ListBudgets(_ context.Context, creds port.Credentials, _ bool) ([]domain.Budget, error) {
	f.hit("budgets", &creds)
	return f.budgets, nil
}

func (f *fakeBackend) GetBudget(_ context.Context, creds port.Credentials, id domain.ID) (*domain.Budget, error) {
	f.hit("get_budget", &creds)
	for _, b := range f.budgets {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "budget", ID: id.String()}
}

func (f *fakeBackend) UpdateBudget(_ context.Context, creds port.Credentials, id domain.ID, _ *domain.UpdateBudgetRequest) (*domain.Budget, error) {
	f.hit("update_budget", &creds)
	return &domain.Budget{ID: id}, nil
}

func (f *fakeBackend) DeleteBudget(_ context.Context, creds port.Credentials, _ domain.ID) error {
	f.hit("delete_budget", &creds)
	return nil
}

func (f *fakeBackend) BudgetStatus(_ context.Context, creds port.Credentials) ([]domain.RemoteBudgetStatus, error) {
	f.hit("budget_status", &creds)
	return f.remote, nil
}

func (f *fakeBackend) QueryAI(_ context.Context, creds port.Credentials, req *domain.AIQueryRequest) (*domain.AIResponse, error) {
	f.hit("ai", &creds)
	f.lastAI = req
	return &domain.AIResponse{Response: f.aiAnswer}, nil
}

// --- Fake stores / notifiers ---

type failingStore struct {
	*sessionstore.Memory
	saveErr error
}

func (s *failingStore) Save(ctx context.Context, sess *domain.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Memory.Save(ctx, sess)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []domain.BudgetAlert
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, a domain.BudgetAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

var errStoreDown = errors.New("disk full")

// --- Helpers ---

func newSession(t *testing.T, api port.UserAPI, store port.SessionStore) *service.SessionManager {
	t.Helper()
	return service.NewSessionManager(api, store, observability.NewMetrics(), zap.NewNop())
}

// loggedIn returns a session manager already holding a token.
func loggedIn(t *testing.T, api *fakeBackend) *service.SessionManager {
	t.Helper()
	m := newSession(t, api, sessionstore.NewMemory())
	if _, err := m.Login(context.Background(), "ana@example.com", "Secret1!"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return m
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
