package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--backend", "sqlite", "--sqlite-path", db}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seeded(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "ctl.db")
	out, err := run(t, db, "seed", "--file", filepath.Join("..", "..", "data", "seed.yaml"), "--bcrypt-cost", "4")
	require.NoError(t, err, out)
	require.Contains(t, out, "Seeded 2 companies, 6 users, 6 expenses")
	return db
}

func TestMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "ctl.db")

	out, err := run(t, db, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 0")

	out, err = run(t, db, "migrate")
	require.NoError(t, err)
	assert.NotContains(t, out, "Schema version: 0")

	root := newRootCmd()
	root.SetArgs([]string{"--backend", "memory", "migrate"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestSeedSkipsPopulatedStore(t *testing.T) {
	db := seeded(t)

	out, err := run(t, db, "seed", "--file", filepath.Join("..", "..", "data", "seed.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")

	_, err = run(t, db, "seed", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpensesList(t *testing.T) {
	db := seeded(t)

	out, err := run(t, db, "expenses", "list", "--as", "erin@acme.test")
	require.NoError(t, err)
	assert.Contains(t, out, "Taxi to client site")
	assert.Contains(t, out, "45.50 USD")
	assert.NotContains(t, out, "Keyboard and mouse")

	out, err = run(t, db, "expenses", "list", "--as", "2", "--status", "rejected")
	require.NoError(t, err)
	assert.Contains(t, out, "Keyboard and mouse")
	assert.NotContains(t, out, "Taxi to client site")

	_, err = run(t, db, "expenses", "list")
	assert.Error(t, err, "--as is required")

	_, err = run(t, db, "expenses", "list", "--as", "99")
	assert.Error(t, err)
}

func TestExpensesSummary(t *testing.T) {
	db := seeded(t)

	out, err := run(t, db, "expenses", "summary", "--as", "max@acme.test")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 255.69 USD across 4 expenses")
	assert.Contains(t, out, "Pending: 2  Approved: 1  Rejected: 1")
	assert.Contains(t, out, "Sep 2025")
}

func TestExpensesApproveAndReject(t *testing.T) {
	db := seeded(t)

	out, err := run(t, db, "expenses", "approve", "1", "--as", "max@acme.test")
	require.NoError(t, err)
	assert.Contains(t, out, "Expense 1 is now approved")

	out, err = run(t, db, "expenses", "list", "--as", "erin@acme.test", "--status", "approved")
	require.NoError(t, err)
	assert.Contains(t, out, "Taxi to client site")

	_, err = run(t, db, "expenses", "reject", "1", "--as", "erin@acme.test")
	assert.Error(t, err, "employees cannot change status")

	_, err = run(t, db, "expenses", "reject", "5", "--as", "max@acme.test")
	assert.Error(t, err, "other company")

	_, err = run(t, db, "expenses", "reject", "abc", "--as", "max@acme.test")
	assert.Error(t, err)
}

func TestUsersList(t *testing.T) {
	db := seeded(t)

	out, err := run(t, db, "users", "list", "--company", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "giulia@rossi.test")
	assert.NotContains(t, out, "ada@acme.test")

	out, err = run(t, db, "users", "list")
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(strings.TrimSpace(out), "\n")+1, out)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	db := seeded(t)
	t.Setenv("EXPENSEFLOW_BACKEND", "sqlite")
	t.Setenv("EXPENSEFLOW_SQLITE_PATH", db)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"users", "list", "--company", "1"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ada@acme.test")
}
