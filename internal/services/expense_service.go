// Package services orchestrates the core rules over the repositories, the
// event publisher and the dashboard cache.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expenseflow/internal/cache"
	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/ports"
	"expenseflow/internal/repository"
)

// RecentCount is how many expenses the dashboard lists.
const RecentCount = 5

// Dashboard is what a user sees on their landing page.
type Dashboard struct {
	User     core.User
	Currency string
	Summary  core.Summary
	Recent   []core.Expense
	// Names maps submitter IDs to names for manager and admin views.
	Names    map[int64]string
}

// ExpenseDeps are the collaborators of an ExpenseService.
type ExpenseDeps struct {
	Expenses  ports.ExpenseRepository
	Users     ports.UserRepository
	Companies ports.CompanyRepository
	Publisher ports.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	// CacheTTL of zero disables dashboard caching.
	CacheTTL  time.Duration
	CacheSize int
}

// ExpenseService submits, approves and summarizes expenses. Read-modify-write
// cycles are serialized inside one process.
type ExpenseService struct {
	expenses   ports.ExpenseRepository
	users      ports.UserRepository
	companies  ports.CompanyRepository
	publisher  ports.EventPublisher
	metrics    *metrics.Metrics
	logger     *log.Logger
	events     *log.Events
	dashboards *cache.Loader[Dashboard]
	lru        *cache.TTLCache[Dashboard]

	mu sync.Mutex
}

func NewExpenseService(deps ExpenseDeps) *ExpenseService {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	size := deps.CacheSize
	if size <= 0 {
		size = 256
	}

	s := &ExpenseService{
		expenses:  deps.Expenses,
		users:     deps.Users,
		companies: deps.Companies,
		publisher: publisher,
		metrics:   deps.Metrics,
		logger:    logger.WithComponent(log.ComponentExpense),
		events:    log.NewEvents(logger),
	}
	if deps.CacheTTL > 0 {
		s.lru = cache.NewTTLCache[Dashboard](size, deps.CacheTTL)
		s.dashboards = cache.NewLoader[Dashboard](s.lru)
	}
	return s
}

// DashboardCache exposes the cache so its size can be reported. It is nil
// when caching is disabled.
func (s *ExpenseService) DashboardCache() cache.Sized {
	if s.lru == nil {
		return nil
	}
	return s.lru
}

// Submit validates form and stores a new pending expense owned by user.
func (s *ExpenseService) Submit(ctx context.Context, user core.User, form core.ExpenseForm) (core.Expense, error) {
	expense, err := s.submit(ctx, user, form)
	if err != nil {
		return core.Expense{}, err
	}

	s.invalidate()
	s.metrics.IncSubmitted(string(expense.Category))
	s.events.ExpenseSubmitted(ctx, expense.ID, expense.EmployeeID, expense.CompanyID,
		core.FormatAmount(expense.Amount.Decimal), expense.Currency, string(expense.Category))
	s.publish(ctx, ports.EventExpenseSubmitted, expense, user.ID)
	return expense, nil
}

func (s *ExpenseService) submit(ctx context.Context, user core.User, form core.ExpenseForm) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	companies, err := s.companies.Load(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	var company *core.Company
	if c, ok := repository.FindCompany(companies, user.CompanyID); ok {
		company = &c
	}

	expenses, err := s.expenses.Load(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	// Validate before reserving an id so bad input does not burn one.
	if _, err := core.BuildExpense(form, user, company, 1); err != nil {
		return core.Expense{}, err
	}

	id, err := s.expenses.NextID(ctx, repository.MaxExpenseID(expenses))
	if err != nil {
		return core.Expense{}, err
	}
	expense, err := core.BuildExpense(form, user, company, id)
	if err != nil {
		return core.Expense{}, err
	}

	if err := s.expenses.Save(ctx, append(expenses, expense)); err != nil {
		return core.Expense{}, err
	}
	return expense, nil
}

// SetStatus records an approval decision by actor on an expense actor can
// see. An expense outside the actor's view is reported as forbidden.
func (s *ExpenseService) SetStatus(ctx context.Context, actor core.User, id int64, status core.Status) (core.Expense, error) {
	updated, err := s.setStatus(ctx, actor, id, status)
	if err != nil {
		return core.Expense{}, err
	}

	s.invalidate()
	s.metrics.IncStatusChange(string(status))
	s.events.StatusDecided(ctx, id, actor.ID, string(status))
	s.publish(ctx, ports.EventExpenseStatusChanged, updated, actor.ID)
	return updated, nil
}

func (s *ExpenseService) setStatus(ctx context.Context, actor core.User, id int64, status core.Status) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users.Load(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	expenses, err := s.expenses.Load(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	if actor.Role.CanApprove() && exists(expenses, id) && !core.CanSee(actor, users, expenses, id) {
		return core.Expense{}, fmt.Errorf("expense %d is outside the view of user %d: %w", id, actor.ID, core.ErrForbidden)
	}

	next, err := core.SetStatus(actor, id, status, expenses)
	if err != nil {
		s.logger.WarnContext(ctx, "Status change refused",
			log.FieldExpenseID, id, log.FieldUserID, actor.ID, log.FieldStatus, string(status), log.FieldError, err)
		return core.Expense{}, err
	}
	if err := s.expenses.Save(ctx, next); err != nil {
		return core.Expense{}, err
	}

	for _, e := range next {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
}

func exists(expenses []core.Expense, id int64) bool {
	for _, e := range expenses {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Visible lists the expenses user may see.
func (s *ExpenseService) Visible(ctx context.Context, user core.User) ([]core.Expense, error) {
	visible, _, err := s.VisibleWithNames(ctx, user)
	return visible, err
}

// VisibleWithNames is Visible plus the submitters' names, keyed by user
// ID. Names is nil for employees, who only ever see their own expenses.
func (s *ExpenseService) VisibleWithNames(ctx context.Context, user core.User) ([]core.Expense, map[int64]string, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	expenses, err := s.expenses.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	visible := core.VisibleExpenses(expenses, user, users)
	return visible, employeeNames(user, users, visible), nil
}

func employeeNames(viewer core.User, users []core.User, visible []core.Expense) map[int64]string {
	if viewer.Role == core.RoleEmployee {
		return nil
	}
	byID := make(map[int64]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Name
	}
	names := make(map[int64]string)
	for _, e := range visible {
		if name, ok := byID[e.EmployeeID]; ok {
			names[e.EmployeeID] = name
		}
	}
	return names
}

// Dashboard aggregates the expenses user may see.
func (s *ExpenseService) Dashboard(ctx context.Context, user core.User) (Dashboard, error) {
	if s.dashboards == nil {
		d, err := s.loadDashboard(ctx, user)
		s.metrics.IncDashboard(false)
		return d, err
	}

	key := fmt.Sprintf("%d/%s/%d", user.ID, user.Role, user.CompanyID)
	d, hit, err := s.dashboards.Get(ctx, key, func(ctx context.Context) (Dashboard, error) {
		return s.loadDashboard(ctx, user)
	})
	if err != nil {
		return Dashboard{}, err
	}
	s.metrics.IncDashboard(hit)
	return d, nil
}

func (s *ExpenseService) loadDashboard(ctx context.Context, user core.User) (Dashboard, error) {
	visible, names, err := s.VisibleWithNames(ctx, user)
	if err != nil {
		return Dashboard{}, err
	}
	companies, err := s.companies.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	currency := core.DefaultCurrency
	if c, ok := repository.FindCompany(companies, user.CompanyID); ok && c.Currency != "" {
		currency = c.Currency
	}

	summary := core.Aggregate(visible)
	for _, a := range summary.Anomalies {
		s.logger.WarnContext(ctx, "Expense aggregated with missing data",
			log.FieldExpenseID, a.ExpenseID, log.FieldReason, a.Reason)
		s.metrics.AddAnomalies(a.Reason, 1)
	}

	return Dashboard{
		User:     user.Public(),
		Currency: currency,
		Summary:  summary,
		Recent:   core.Recent(visible, RecentCount),
		Names:    names,
	}, nil
}

func (s *ExpenseService) invalidate() {
	if s.dashboards != nil {
		s.dashboards.Invalidate()
	}
}

// publish announces a change. Failures are logged only: the write has
// already been stored.
func (s *ExpenseService) publish(ctx context.Context, eventType string, e core.Expense, actorID int64) {
	err := s.publisher.PublishExpenseEvent(ctx, eventType, e, actorID)
	s.metrics.IncPublished(eventType, err)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish expense event",
			"type", eventType, log.FieldExpenseID, e.ID, log.FieldError, err)
	}
}
