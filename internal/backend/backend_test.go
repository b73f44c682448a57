package backend

import (
	"context"
	"path/filepath"
	"testing"

	"expenseflow/internal/config"
	"expenseflow/internal/core"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"memory": KindMemory, " SQLite ": KindSQLite, "REDIS": KindRedis} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("sheets"); err == nil {
		t.Error("ParseKind(sheets) error = nil")
	}
}

func TestConfigFrom(t *testing.T) {
	if _, err := ConfigFrom(nil); err == nil {
		t.Error("ConfigFrom(nil) error = nil")
	}
	if _, err := ConfigFrom(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("ConfigFrom accepted an unknown backend")
	}

	cfg, err := ConfigFrom(&config.Config{DataBackend: "redis", RedisURL: "redis://localhost:6379/1"})
	if err != nil {
		t.Fatalf("ConfigFrom() error = %v", err)
	}
	if cfg.Kind != KindRedis || cfg.RedisURL != "redis://localhost:6379/1" || cfg.DialTimeout == 0 {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		cfg Config
		ok  bool
	}{
		{Config{Kind: KindMemory}, true},
		{Config{Kind: KindSQLite, SQLitePath: "x.db"}, true},
		{Config{Kind: KindSQLite}, false},
		{Config{Kind: KindRedis}, false},
		{Config{Kind: "sheets"}, false},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); (err == nil) != c.ok {
			t.Errorf("%+v.Validate() = %v", c.cfg, err)
		}
	}
}

func TestOpenAndRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []Config{
		{Kind: KindMemory},
		{Kind: KindSQLite, SQLitePath: filepath.Join(t.TempDir(), "data", "test.db")},
	} {
		t.Run(string(cfg.Kind), func(t *testing.T) {
			opened, err := Open(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() {
				if err := opened.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}()

			if err := opened.Store.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}

			repos := NewRepositories(opened.Store, 0, nil)
			if err := repos.Companies.Save(ctx, []core.Company{{ID: 1, Name: "Acme", Currency: "USD"}}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			companies, err := repos.Companies.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(companies) != 1 || companies[0].Name != "Acme" {
				t.Errorf("Load() = %+v", companies)
			}
		})
	}

	if _, err := Open(ctx, Config{Kind: "sheets"}, nil); err == nil {
		t.Error("Open() accepted an unknown backend")
	}
}
