package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expenseflow/internal/backend"
	"expenseflow/internal/core"
	"expenseflow/internal/repository"
	"expenseflow/internal/services"
)

// session is an open store with its repositories.
type session struct {
	repos backend.Repositories
	close backend.CleanupFunc
}

func (a *app) open(ctx context.Context) (*session, error) {
	kind, err := backend.ParseKind(a.v.GetString("backend"))
	if err != nil {
		return nil, err
	}
	opened, err := backend.Open(ctx, backend.Config{
		Kind:        kind,
		SQLitePath:  a.v.GetString("sqlite-path"),
		RedisURL:    a.v.GetString("redis-url"),
		DialTimeout: 5 * time.Second,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return &session{
		repos: backend.NewRepositories(opened.Store, 24*time.Hour, a.logger),
		close: opened.Close,
	}, nil
}

func (s *session) Close() { _ = s.close() }

func (a *app) expenseService(s *session) *services.ExpenseService {
	return services.NewExpenseService(services.ExpenseDeps{
		Expenses:  s.repos.Expenses,
		Users:     s.repos.Users,
		Companies: s.repos.Companies,
		Logger:    a.logger,
	})
}

// actor resolves --as, which takes a user id or an email address.
func (s *session) actor(ctx context.Context, as string) (core.User, error) {
	if as == "" {
		return core.User{}, fmt.Errorf("--as is required")
	}
	users, err := s.repos.Users.Load(ctx)
	if err != nil {
		return core.User{}, err
	}
	if id, err := strconv.ParseInt(as, 10, 64); err == nil {
		if u, ok := repository.FindUser(users, id); ok {
			return u.Public(), nil
		}
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	for _, u := range users {
		if u.Email != "" && strings.EqualFold(u.Email, as) {
			return u.Public(), nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", as, core.ErrNotFound)
}
