package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"expenseflow/internal/backend"
	"expenseflow/internal/config"
	"expenseflow/internal/log"
	"expenseflow/internal/storage"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "x" + p, nil }
func (plainHasher) Compare(string, string) error  { return nil }

func TestSeedIfConfigured(t *testing.T) {
	ctx := context.Background()
	logger := log.NewText(log.ParseLevel("error"), log.ComponentCLI)
	repos := backend.NewRepositories(storage.NewMemoryStore(), 0, logger)
	seeder := repos.Seeder(plainHasher{})

	if err := SeedIfConfigured(ctx, logger, &config.Config{}, seeder); err != nil {
		t.Fatalf("SeedIfConfigured() without file error = %v", err)
	}
	users, _ := repos.Users.Load(ctx)
	if len(users) != 0 {
		t.Fatalf("no seed file should leave the store empty, got %d users", len(users))
	}

	path := filepath.Join(t.TempDir(), "seed.yaml")
	seed := "companies:\n  - {id: 1, name: Acme, currency: USD}\n" +
		"users:\n  - {id: 1, name: Ada, email: ada@acme.test, role: admin, companyId: 1, password: secret1}\n"
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{SeedFile: path}
	if err := SeedIfConfigured(ctx, logger, cfg, seeder); err != nil {
		t.Fatalf("SeedIfConfigured() error = %v", err)
	}
	users, _ = repos.Users.Load(ctx)
	if len(users) != 1 || users[0].PasswordHash != "xsecret1" {
		t.Fatalf("seeded users = %+v", users)
	}

	// A second run leaves existing data alone.
	if err := SeedIfConfigured(ctx, logger, cfg, seeder); err != nil {
		t.Fatalf("second SeedIfConfigured() error = %v", err)
	}

	if err := SeedIfConfigured(ctx, logger, &config.Config{SeedFile: filepath.Join(t.TempDir(), "nope.yaml")}, seeder); err == nil {
		t.Error("SeedIfConfigured() with a missing file should fail")
	}
}
