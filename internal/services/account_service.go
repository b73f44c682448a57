package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/ports"
	"expenseflow/internal/repository"
)

// SignupForm registers a new company together with its first admin.
type SignupForm struct {
	Name        string
	Email       string
	Password    string
	Country     string
	Currency    string
	CompanyName string
}

// NewUserForm is what an admin fills in to add a colleague.
type NewUserForm struct {
	Name      string
	Email     string
	Password  string
	Role      string
	ManagerID *int64
}

type AccountDeps struct {
	Users     ports.UserRepository
	Companies ports.CompanyRepository
	Sessions  ports.SessionStore
	Hasher    ports.PasswordHasher
	Publisher ports.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	// DemoMode allows users to switch their own role.
	DemoMode bool
}

// AccountService handles signup, login and user management.
type AccountService struct {
	users     ports.UserRepository
	companies ports.CompanyRepository
	sessions  ports.SessionStore
	hasher    ports.PasswordHasher
	publisher ports.EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	demoMode  bool

	mu sync.Mutex
}

func NewAccountService(deps AccountDeps) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &AccountService{
		users:     deps.Users,
		companies: deps.Companies,
		sessions:  deps.Sessions,
		hasher:    deps.Hasher,
		publisher: publisher,
		metrics:   deps.Metrics,
		logger:    logger.WithComponent(log.ComponentAccount),
		demoMode:  deps.DemoMode,
	}
}

func (s *AccountService) DemoMode() bool { return s.demoMode }

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", core.NewValidationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", core.NewValidationError("email", "email is not a valid address")
	}
	return email, nil
}

func findByEmail(users []core.User, email string) (core.User, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return core.User{}, false
}

// Signup creates a company and its admin, then logs the admin in.
func (s *AccountService) Signup(ctx context.Context, form SignupForm) (core.User, core.Session, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return core.User{}, core.Session{}, core.NewValidationError("name", "name is required")
	}
	email, err := normalizeEmail(form.Email)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	currency := core.DefaultCurrency
	if strings.TrimSpace(form.Currency) != "" {
		if currency, err = core.NormalizeCurrency(form.Currency); err != nil {
			return core.User{}, core.Session{}, err
		}
	}
	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return core.User{}, core.Session{}, err
	}

	companyName := strings.TrimSpace(form.CompanyName)
	if companyName == "" {
		companyName = name + "'s company"
	}

	user, err := s.signup(ctx, core.Company{
		Name:     companyName,
		Country:  strings.TrimSpace(form.Country),
		Currency: currency,
	}, core.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         core.RoleAdmin,
	})
	if err != nil {
		return core.User{}, core.Session{}, err
	}

	s.logger.InfoContext(ctx, "Company registered",
		log.FieldUserID, user.ID, log.FieldCompanyID, user.CompanyID, log.FieldCurrency, currency)

	sess, err := s.startSession(ctx, user)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	return user.Public(), sess, nil
}

func (s *AccountService) signup(ctx context.Context, company core.Company, user core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users.Load(ctx)
	if err != nil {
		return core.User{}, err
	}
	if _, taken := findByEmail(users, user.Email); taken {
		return core.User{}, fmt.Errorf("email %s already registered: %w", user.Email, core.ErrConflict)
	}
	companies, err := s.companies.Load(ctx)
	if err != nil {
		return core.User{}, err
	}

	if company.ID, err = s.companies.NextID(ctx, repository.MaxCompanyID(companies)); err != nil {
		return core.User{}, err
	}
	if user.ID, err = s.users.NextID(ctx, repository.MaxUserID(users)); err != nil {
		return core.User{}, err
	}
	user.CompanyID = company.ID

	if err := s.companies.Save(ctx, append(companies, company)); err != nil {
		return core.User{}, err
	}
	if err := s.users.Save(ctx, append(users, user)); err != nil {
		return core.User{}, err
	}
	return user, nil
}

func (s *AccountService) startSession(ctx context.Context, user core.User) (core.Session, error) {
	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return core.Session{}, err
	}
	if err := s.sessions.SetCurrentUser(ctx, &user); err != nil {
		s.logger.WarnContext(ctx, "Failed to record current user", log.FieldUserID, user.ID, log.FieldError, err)
	}
	return sess, nil
}

// Login checks the credentials and opens a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, core.Session, error) {
	user, sess, err := s.login(ctx, email, password)
	s.metrics.IncLogin(err)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			s.logger.WarnContext(ctx, "Login rejected", log.FieldOperation, log.OpLogin)
		}
		return core.User{}, core.Session{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID, log.FieldRole, string(user.Role))
	return user, sess, nil
}

func (s *AccountService) login(ctx context.Context, email, password string) (core.User, core.Session, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	user, ok := findByEmail(users, strings.TrimSpace(email))
	if !ok || user.PasswordHash == "" {
		return core.User{}, core.Session{}, fmt.Errorf("login: %w", core.ErrUnauthorized)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return core.User{}, core.Session{}, err
	}
	sess, err := s.startSession(ctx, user)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	return user.Public(), sess, nil
}

// Logout ends the session. Logging out an unknown token is not an error.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	return s.sessions.SetCurrentUser(ctx, nil)
}

// Authenticate resolves a session token to its user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (core.User, error) {
	if strings.TrimSpace(token) == "" {
		return core.User{}, fmt.Errorf("missing session token: %w", core.ErrUnauthorized)
	}
	sess, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, fmt.Errorf("unknown session: %w", core.ErrUnauthorized)
		}
		return core.User{}, err
	}
	users, err := s.users.Load(ctx)
	if err != nil {
		return core.User{}, err
	}
	user, ok := repository.FindUser(users, sess.UserID)
	if !ok {
		return core.User{}, fmt.Errorf("session user %d is gone: %w", sess.UserID, core.ErrUnauthorized)
	}
	return user.Public(), nil
}

// CreateUser adds a user to the admin's company.
func (s *AccountService) CreateUser(ctx context.Context, admin core.User, form NewUserForm) (core.User, error) {
	if admin.Role != core.RoleAdmin {
		return core.User{}, fmt.Errorf("only admins add users: %w", core.ErrForbidden)
	}
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return core.User{}, core.NewValidationError("name", "name is required")
	}
	email, err := normalizeEmail(form.Email)
	if err != nil {
		return core.User{}, err
	}
	role, err := core.ParseRole(form.Role)
	if err != nil {
		return core.User{}, err
	}
	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users.Load(ctx)
	if err != nil {
		return core.User{}, err
	}
	if _, taken := findByEmail(users, email); taken {
		return core.User{}, fmt.Errorf("email %s already registered: %w", email, core.ErrConflict)
	}

	var managerID *int64
	if form.ManagerID != nil && *form.ManagerID > 0 {
		manager, ok := repository.FindUser(users, *form.ManagerID)
		if !ok || manager.CompanyID != admin.CompanyID || manager.Role != core.RoleManager {
			return core.User{}, core.NewValidationError("managerId", "manager must be a manager of your company")
		}
		id := manager.ID
		managerID = &id
	}

	id, err := s.users.NextID(ctx, repository.MaxUserID(users))
	if err != nil {
		return core.User{}, err
	}
	user := core.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    admin.CompanyID,
		ManagerID:    managerID,
	}
	if err := s.users.Save(ctx, append(users, user)); err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User created",
		log.FieldUserID, user.ID, log.FieldCompanyID, user.CompanyID, log.FieldRole, string(user.Role))
	return user.Public(), nil
}

// SwitchRole changes the caller's own role. It only works in demo mode.
func (s *AccountService) SwitchRole(ctx context.Context, user core.User, role string) (core.User, error) {
	if !s.demoMode {
		return core.User{}, fmt.Errorf("role switching is disabled: %w", core.ErrForbidden)
	}
	next, err := core.ParseRole(role)
	if err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users.Load(ctx)
	if err != nil {
		return core.User{}, err
	}
	for i := range users {
		if users[i].ID != user.ID {
			continue
		}
		users[i].Role = next
		if err := s.users.Save(ctx, users); err != nil {
			return core.User{}, err
		}
		updated := users[i]
		if err := s.sessions.SetCurrentUser(ctx, &updated); err != nil {
			s.logger.WarnContext(ctx, "Failed to record current user", log.FieldUserID, user.ID, log.FieldError, err)
		}
		s.logger.InfoContext(ctx, "Role switched", log.FieldUserID, user.ID, log.FieldRole, string(next))
		return updated.Public(), nil
	}
	return core.User{}, fmt.Errorf("user %d: %w", user.ID, core.ErrNotFound)
}

// RequestPasswordReset publishes a reset token for a registered email.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	users, err := s.users.Load(ctx)
	if err != nil {
		return err
	}
	user, ok := findByEmail(users, normalized)
	if !ok {
		return fmt.Errorf("email %s: %w", normalized, core.ErrNotFound)
	}

	token := uuid.NewString()
	err = s.publisher.PublishPasswordReset(ctx, user.Email, token)
	s.metrics.IncPublished(ports.EventPasswordResetRequested, err)
	if err != nil {
		return fmt.Errorf("send password reset: %w", core.ErrUnavailable)
	}
	s.logger.InfoContext(ctx, "Password reset requested", log.FieldUserID, user.ID)
	return nil
}

// CompanyUsers lists the users of the caller's company.
func (s *AccountService) CompanyUsers(ctx context.Context, user core.User) ([]core.User, error) {
	if !user.Role.CanApprove() {
		return nil, fmt.Errorf("employees cannot list users: %w", core.ErrForbidden)
	}
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.User, 0, len(users))
	for _, u := range users {
		if u.CompanyID == user.CompanyID {
			out = append(out, u.Public())
		}
	}
	return out, nil
}
