// Package repository provides typed access to the records kept in a blob
// store: every list lives under one key and is rewritten whole on save.
package repository

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/ports"
	"expenseflow/internal/storage"
)

var (
	_ ports.ExpenseRepository = (*ExpenseRepository)(nil)
	_ ports.UserRepository    = (*UserRepository)(nil)
	_ ports.CompanyRepository = (*CompanyRepository)(nil)
)

// blobList is a list of records stored as a single JSON blob.
type blobList[T any] struct {
	store  storage.Store
	key    string
	seq    string
	logger *log.Logger
	decode func([]byte, *log.Logger) ([]T, error)
	encode func([]T) ([]byte, error)
}

// Load returns the stored list. A key that was never written reads as an
// empty list.
func (l *blobList[T]) Load(ctx context.Context) ([]T, error) {
	data, err := l.store.Get(ctx, l.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.key, err)
	}
	return l.decode(data, l.logger)
}

func (l *blobList[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := l.encode(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.key, err)
	}
	if err := l.store.Put(ctx, l.key, data); err != nil {
		return fmt.Errorf("save %s: %w", l.key, err)
	}
	return nil
}

func (l *blobList[T]) NextID(ctx context.Context, floor int64) (int64, error) {
	id, err := l.store.NextSequence(ctx, l.seq, floor)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", l.key, err)
	}
	return id, nil
}

func encodeJSON[T any](items []T) ([]byte, error) {
	return json.Marshal(items)
}

func repoLogger(logger *log.Logger) *log.Logger {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return logger.WithComponent(log.ComponentRepository)
}

type ExpenseRepository struct {
	blobList[core.Expense]
}

func NewExpenseRepository(store storage.Store, logger *log.Logger) *ExpenseRepository {
	return &ExpenseRepository{blobList[core.Expense]{
		store:  store,
		key:    storage.KeyExpenses,
		seq:    storage.SeqExpenses,
		logger: repoLogger(logger),
		decode: decodeExpenses,
		encode: encodeExpenses,
	}}
}

type UserRepository struct {
	blobList[core.User]
}

func NewUserRepository(store storage.Store, logger *log.Logger) *UserRepository {
	return &UserRepository{blobList[core.User]{
		store:  store,
		key:    storage.KeyUsers,
		seq:    storage.SeqUsers,
		logger: repoLogger(logger),
		decode: decodeUsers,
		encode: encodeJSON[core.User],
	}}
}

type CompanyRepository struct {
	blobList[core.Company]
}

func NewCompanyRepository(store storage.Store, logger *log.Logger) *CompanyRepository {
	return &CompanyRepository{blobList[core.Company]{
		store:  store,
		key:    storage.KeyCompanies,
		seq:    storage.SeqCompanies,
		logger: repoLogger(logger),
		decode: decodeCompanies,
		encode: encodeJSON[core.Company],
	}}
}

// MaxExpenseID returns the highest id in expenses, or 0.
func MaxExpenseID(expenses []core.Expense) int64 {
	var highest int64
	for _, e := range expenses {
		if e.ID > highest {
			highest = e.ID
		}
	}
	return highest
}

func MaxUserID(users []core.User) int64 {
	var highest int64
	for _, u := range users {
		if u.ID > highest {
			highest = u.ID
		}
	}
	return highest
}

func MaxCompanyID(companies []core.Company) int64 {
	var highest int64
	for _, c := range companies {
		if c.ID > highest {
			highest = c.ID
		}
	}
	return highest
}

// FindUser returns the user with the given id.
func FindUser(users []core.User, id int64) (core.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return core.User{}, false
}

// FindCompany returns the company with the given id.
func FindCompany(companies []core.Company, id int64) (core.Company, bool) {
	for _, c := range companies {
		if c.ID == id {
			return c, true
		}
	}
	return core.Company{}, false
}
