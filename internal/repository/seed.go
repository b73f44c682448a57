package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"expenseflow/internal/core"
	"expenseflow/internal/ports"
)

// Seed is demo data loaded from a YAML file.
type Seed struct {
	Companies []core.Company `yaml:"companies"`
	Users     []SeedUser     `yaml:"users"`
	Expenses  []SeedExpense  `yaml:"expenses"`
}

// SeedUser carries a plain text password that is hashed when applied.
type SeedUser struct {
	core.User `yaml:",inline"`
	Password  string `yaml:"password"`
}

type SeedExpense struct {
	ID          int64  `yaml:"id"`
	EmployeeID  int64  `yaml:"employeeId"`
	CompanyID   int64  `yaml:"companyId"`
	Amount      string `yaml:"amount"`
	Currency    string `yaml:"currency"`
	Category    string `yaml:"category"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &s, nil
}

// Seeder writes seed data through the repositories.
type Seeder struct {
	Companies ports.CompanyRepository
	Users     ports.UserRepository
	Expenses  ports.ExpenseRepository
	Hasher    ports.PasswordHasher
}

// SeedResult counts what Apply wrote.
type SeedResult struct {
	Companies int
	Users     int
	Expenses  int
	Skipped   bool
}

// Apply stores the seed. Unless force is set it does nothing when users
// already exist, so restarting a server never clobbers real data.
func (s *Seeder) Apply(ctx context.Context, seed *Seed, force bool) (SeedResult, error) {
	if !force {
		existing, err := s.Users.Load(ctx)
		if err != nil {
			return SeedResult{}, err
		}
		if len(existing) > 0 {
			return SeedResult{Skipped: true}, nil
		}
	}

	users := make([]core.User, 0, len(seed.Users))
	for _, su := range seed.Users {
		u := su.User
		if su.Password != "" {
			hash, err := s.Hasher.Hash(su.Password)
			if err != nil {
				return SeedResult{}, fmt.Errorf("hash password of seed user %d: %w", u.ID, err)
			}
			u.PasswordHash = hash
		}
		if !u.Role.Valid() {
			return SeedResult{}, fmt.Errorf("seed user %d: unknown role %q", u.ID, u.Role)
		}
		users = append(users, u)
	}

	expenses := make([]core.Expense, 0, len(seed.Expenses))
	for _, se := range seed.Expenses {
		e, err := se.toExpense()
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed expense %d: %w", se.ID, err)
		}
		expenses = append(expenses, e)
	}

	if err := s.Companies.Save(ctx, seed.Companies); err != nil {
		return SeedResult{}, err
	}
	if err := s.Users.Save(ctx, users); err != nil {
		return SeedResult{}, err
	}
	if err := s.Expenses.Save(ctx, expenses); err != nil {
		return SeedResult{}, err
	}

	return SeedResult{Companies: len(seed.Companies), Users: len(users), Expenses: len(expenses)}, nil
}

func (se SeedExpense) toExpense() (core.Expense, error) {
	amount, err := core.ParseAmount(se.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount %q: %w", se.Amount, err)
	}
	category, err := core.ParseCategory(se.Category)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(se.Date)
	if err != nil {
		return core.Expense{}, err
	}
	status := core.StatusPending
	if se.Status != "" {
		if status, err = core.ParseStatus(se.Status); err != nil {
			return core.Expense{}, err
		}
	}
	return core.Expense{
		ID:          se.ID,
		EmployeeID:  se.EmployeeID,
		CompanyID:   se.CompanyID,
		Amount:      decimal.NewNullDecimal(amount),
		Currency:    se.Currency,
		Category:    category,
		Date:        date,
		Description: se.Description,
		Status:      status,
	}, nil
}
