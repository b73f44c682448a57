package backend

import (
	"time"

	"expenseflow/internal/log"
	"expenseflow/internal/ports"
	"expenseflow/internal/repository"
	"expenseflow/internal/storage"
)

// Repositories groups the typed accessors over one store.
type Repositories struct {
	Expenses  ports.ExpenseRepository
	Users     ports.UserRepository
	Companies ports.CompanyRepository
	Sessions  ports.SessionStore
}

// NewRepositories layers the repositories on store.
func NewRepositories(store storage.Store, sessionTTL time.Duration, logger *log.Logger) Repositories {
	return Repositories{
		Expenses:  repository.NewExpenseRepository(store, logger),
		Users:     repository.NewUserRepository(store, logger),
		Companies: repository.NewCompanyRepository(store, logger),
		Sessions:  repository.NewSessionStore(store, sessionTTL, logger),
	}
}

// Seeder returns a seeder writing through r.
func (r Repositories) Seeder(hasher ports.PasswordHasher) *repository.Seeder {
	return &repository.Seeder{
		Companies: r.Companies,
		Users:     r.Users,
		Expenses:  r.Expenses,
		Hasher:    hasher,
	}
}
