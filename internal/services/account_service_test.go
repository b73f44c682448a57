package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/core"
)

func TestSignupAndLogin(t *testing.T) {
	e := newEnv(t)
	svc := e.accountService(false)
	ctx := context.Background()

	user, sess, err := svc.Signup(ctx, SignupForm{
		Name: "Nora", Email: " Nora@Example.com ", Password: "hunter22",
		Country: "Japan", Currency: "jpy",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), user.ID)
	assert.Equal(t, int64(3), user.CompanyID)
	assert.Equal(t, core.RoleAdmin, user.Role)
	assert.Equal(t, "nora@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.NotEmpty(t, sess.Token)

	companies, err := e.companies.Load(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "JPY", companies[2].Currency)
	assert.Equal(t, "Japan", companies[2].Country)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	current, err := e.sessions.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)

	_, _, err = svc.Login(ctx, "nora@example.com", "wrong-password")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, sess2, err := svc.Login(ctx, "NORA@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess2.Token))
	_, err = svc.Authenticate(ctx, sess2.Token)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	current, err = e.sessions.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestSignupValidation(t *testing.T) {
	e := newEnv(t)
	svc := e.accountService(false)
	ctx := context.Background()

	tests := []struct {
		name string
		form SignupForm
	}{
		{"no name", SignupForm{Email: "a@b.test", Password: "secret1"}},
		{"bad email", SignupForm{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"short password", SignupForm{Name: "A", Email: "a@b.test", Password: "abc"}},
		{"bad currency", SignupForm{Name: "A", Email: "a@b.test", Password: "secret1", Currency: "dollars"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Signup(ctx, tt.form)
			assert.True(t, core.IsValidation(err), "got %v", err)
		})
	}

	_, _, err := svc.Signup(ctx, SignupForm{Name: "Dup", Email: "admin@acme.test", Password: "secret1"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestAuthenticateRejectsEmptyToken(t *testing.T) {
	e := newEnv(t)
	_, err := e.accountService(false).Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t)
	svc := e.accountService(false)
	ctx := context.Background()
	admin := e.user(t, 1)

	user, err := svc.CreateUser(ctx, admin, NewUserForm{
		Name: "New Hire", Email: "hire@acme.test", Password: "secret1", Role: "employee", ManagerID: ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), user.ID)
	assert.Equal(t, int64(1), user.CompanyID)
	require.NotNil(t, user.ManagerID)
	assert.Equal(t, int64(2), *user.ManagerID)
	assert.Contains(t, e.logs.String(), "User created")
	assert.Contains(t, e.logs.String(), "user_id=8 company_id=1 role=employee")

	_, err = svc.CreateUser(ctx, e.user(t, 2), NewUserForm{Name: "X", Email: "x@acme.test", Password: "secret1", Role: "employee"})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.CreateUser(ctx, admin, NewUserForm{Name: "X", Email: "x@acme.test", Password: "secret1", Role: "employee", ManagerID: ptr(6)})
	assert.True(t, core.IsValidation(err), "manager from another company")

	_, err = svc.CreateUser(ctx, admin, NewUserForm{Name: "X", Email: "x@acme.test", Password: "secret1", Role: "employee", ManagerID: ptr(3)})
	assert.True(t, core.IsValidation(err), "manager must have the manager role")

	_, err = svc.CreateUser(ctx, admin, NewUserForm{Name: "X", Email: "x@acme.test", Password: "secret1", Role: "boss"})
	assert.True(t, core.IsValidation(err))

	_, err = svc.CreateUser(ctx, admin, NewUserForm{Name: "X", Email: "hire@acme.test", Password: "secret1", Role: "employee"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestSwitchRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accountService(false).SwitchRole(ctx, e.user(t, 3), "admin")
	assert.ErrorIs(t, err, core.ErrForbidden)

	svc := e.accountService(true)
	got, err := svc.SwitchRole(ctx, e.user(t, 3), "manager")
	require.NoError(t, err)
	assert.Equal(t, core.RoleManager, got.Role)
	assert.Equal(t, core.RoleManager, e.user(t, 3).Role)

	_, err = svc.SwitchRole(ctx, e.user(t, 3), "owner")
	assert.True(t, core.IsValidation(err))

	_, err = svc.SwitchRole(ctx, core.User{ID: 99}, "admin")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRequestPasswordReset(t *testing.T) {
	e := newEnv(t)
	svc := e.accountService(false)
	ctx := context.Background()

	e.publisher.On("PublishPasswordReset", mock.Anything, "e1@acme.test", mock.AnythingOfType("string")).Return(nil).Once()
	require.NoError(t, svc.RequestPasswordReset(ctx, "E1@acme.test"))
	e.publisher.AssertExpectations(t)

	err := svc.RequestPasswordReset(ctx, "ghost@acme.test")
	assert.ErrorIs(t, err, core.ErrNotFound)

	e.publisher.On("PublishPasswordReset", mock.Anything, "e2@acme.test", mock.Anything).Return(errors.New("down")).Once()
	err = svc.RequestPasswordReset(ctx, "e2@acme.test")
	assert.ErrorIs(t, err, core.ErrUnavailable)
}

func TestCompanyUsers(t *testing.T) {
	e := newEnv(t)
	svc := e.accountService(false)
	ctx := context.Background()

	users, err := svc.CompanyUsers(ctx, e.user(t, 6))
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, int64(2), u.CompanyID)
		assert.Empty(t, u.PasswordHash)
	}

	_, err = svc.CompanyUsers(ctx, e.user(t, 3))
	assert.ErrorIs(t, err, core.ErrForbidden)
}
