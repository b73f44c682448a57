package services

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/repository"
	"expenseflow/internal/storage"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishExpenseEvent(ctx context.Context, eventType string, e core.Expense, actorID int64) error {
	return m.Called(ctx, eventType, e, actorID).Error(0)
}

func (m *mockPublisher) PublishPasswordReset(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

type fakeHasher struct{}

func (fakeHasher) Hash(p string) (string, error) {
	if len(p) < 6 {
		return "", core.NewValidationError("password", "too short")
	}
	return "h:" + p, nil
}

func (fakeHasher) Compare(h, p string) error {
	if h != "h:"+p {
		return core.ErrUnauthorized
	}
	return nil
}

func ptr(v int64) *int64 { return &v }

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

type env struct {
	store     *storage.MemoryStore
	expenses  *repository.ExpenseRepository
	users     *repository.UserRepository
	companies *repository.CompanyRepository
	sessions  *repository.SessionStore
	publisher *mockPublisher
	metrics   *metrics.Metrics
	logs      *syncBuffer
	logger    *log.Logger
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newEnv seeds company 1 (admin 1, manager 2 with employees 3 and 4,
// employee 5 without a manager) and company 2 (admin 6, employee 7).
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logs := &syncBuffer{}
	logger := log.New(log.Config{Handler: slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})})
	store := storage.NewMemoryStore()

	e := &env{
		store:     store,
		expenses:  repository.NewExpenseRepository(store, logger),
		users:     repository.NewUserRepository(store, logger),
		companies: repository.NewCompanyRepository(store, logger),
		sessions:  repository.NewSessionStore(store, time.Hour, logger),
		publisher: &mockPublisher{},
		metrics:   metrics.New(),
		logs:      logs,
		logger:    logger,
	}

	require.NoError(t, e.companies.Save(ctx, []core.Company{
		{ID: 1, Name: "Acme", Country: "United States", Currency: "USD"},
		{ID: 2, Name: "Rossi", Country: "Italy", Currency: "EUR"},
	}))
	require.NoError(t, e.users.Save(ctx, []core.User{
		{ID: 1, Name: "Admin", Email: "admin@acme.test", PasswordHash: "h:secret1", Role: core.RoleAdmin, CompanyID: 1},
		{ID: 2, Name: "Manager", Email: "m@acme.test", PasswordHash: "h:secret1", Role: core.RoleManager, CompanyID: 1},
		{ID: 3, Name: "E1", Email: "e1@acme.test", PasswordHash: "h:secret1", Role: core.RoleEmployee, CompanyID: 1, ManagerID: ptr(2)},
		{ID: 4, Name: "E2", Email: "e2@acme.test", PasswordHash: "h:secret1", Role: core.RoleEmployee, CompanyID: 1, ManagerID: ptr(2)},
		{ID: 5, Name: "E3", Email: "e3@acme.test", PasswordHash: "h:secret1", Role: core.RoleEmployee, CompanyID: 1},
		{ID: 6, Name: "Admin Two", Email: "admin@rossi.test", PasswordHash: "h:secret1", Role: core.RoleAdmin, CompanyID: 2},
		{ID: 7, Name: "F1", Email: "f1@rossi.test", PasswordHash: "h:secret1", Role: core.RoleEmployee, CompanyID: 2},
	}))
	require.NoError(t, e.expenses.Save(ctx, []core.Expense{
		{ID: 1, EmployeeID: 3, CompanyID: 1, Amount: amount("10.10"), Currency: "USD", Category: core.CategoryTravel, Date: core.NewDate(2025, 10, 3), Status: core.StatusPending},
		{ID: 2, EmployeeID: 4, CompanyID: 1, Amount: amount("20.20"), Currency: "USD", Category: core.CategoryFood, Date: core.NewDate(2025, 9, 14), Status: core.StatusApproved},
		{ID: 3, EmployeeID: 5, CompanyID: 1, Amount: amount("0.30"), Currency: "USD", Category: core.CategoryTravel, Date: core.NewDate(2025, 10, 20), Status: core.StatusPending},
		{ID: 4, EmployeeID: 7, CompanyID: 2, Amount: amount("99.99"), Currency: "EUR", Category: core.CategoryOffice, Date: core.NewDate(2025, 10, 1), Status: core.StatusPending},
	}))
	return e
}

func (e *env) expenseService(ttl time.Duration) *ExpenseService {
	return NewExpenseService(ExpenseDeps{
		Expenses:  e.expenses,
		Users:     e.users,
		Companies: e.companies,
		Publisher: e.publisher,
		Metrics:   e.metrics,
		Logger:    e.logger,
		CacheTTL:  ttl,
	})
}

func (e *env) accountService(demo bool) *AccountService {
	return NewAccountService(AccountDeps{
		Users:     e.users,
		Companies: e.companies,
		Sessions:  e.sessions,
		Hasher:    fakeHasher{},
		Publisher: e.publisher,
		Metrics:   e.metrics,
		Logger:    e.logger,
		DemoMode:  demo,
	})
}

func (e *env) user(t *testing.T, id int64) core.User {
	t.Helper()
	users, err := e.users.Load(context.Background())
	require.NoError(t, err)
	u, ok := repository.FindUser(users, id)
	require.True(t, ok)
	return u
}
