// Package ports declares the storage and messaging boundaries the services
// depend on.
package ports

import (
	"context"

	"expenseflow/internal/core"
)

type (
	// ExpenseRepository loads and saves the whole expense list at once.
	ExpenseRepository interface {
		Load(ctx context.Context) ([]core.Expense, error)
		Save(ctx context.Context, expenses []core.Expense) error
		// NextID returns a fresh id greater than floor and than every id
		// handed out before.
		NextID(ctx context.Context, floor int64) (int64, error)
	}

	UserRepository interface {
		Load(ctx context.Context) ([]core.User, error)
		Save(ctx context.Context, users []core.User) error
		NextID(ctx context.Context, floor int64) (int64, error)
	}

	CompanyRepository interface {
		Load(ctx context.Context) ([]core.Company, error)
		Save(ctx context.Context, companies []core.Company) error
		NextID(ctx context.Context, floor int64) (int64, error)
	}

	// SessionStore keeps login sessions and the most recently logged in user.
	SessionStore interface {
		Create(ctx context.Context, userID int64) (core.Session, error)
		Lookup(ctx context.Context, token string) (core.Session, error)
		Delete(ctx context.Context, token string) error
		SetCurrentUser(ctx context.Context, user *core.User) error
		CurrentUser(ctx context.Context) (*core.User, error)
	}

	// EventPublisher announces domain changes to other processes.
	EventPublisher interface {
		PublishExpenseEvent(ctx context.Context, eventType string, expense core.Expense, actorID int64) error
		PublishPasswordReset(ctx context.Context, email, token string) error
	}
)

// Event types published for expense changes.
const (
	EventExpenseSubmitted     = "expense.submitted"
	EventExpenseStatusChanged = "expense.status_changed"

	EventPasswordResetRequested = "account.password_reset_requested"
)

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishExpenseEvent(context.Context, string, core.Expense, int64) error {
	return nil
}

func (NopPublisher) PublishPasswordReset(context.Context, string, string) error { return nil }

// PasswordHasher hashes and checks login passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
