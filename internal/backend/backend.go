// Package backend opens the blob store selected by configuration and
// layers the repositories on it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expenseflow/internal/config"
	"expenseflow/internal/log"
	"expenseflow/internal/storage"
)

const defaultDialTimeout = 5 * time.Second

// Kind names a store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// Kinds lists the supported store kinds in the order help text shows them.
func Kinds() []Kind { return []Kind{KindMemory, KindSQLite, KindRedis} }

// KindNames is Kinds as strings.
func KindNames() []string {
	names := make([]string, 0, 3)
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return names
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown store backend %q (want one of %s)", s, strings.Join(KindNames(), ", "))
}

// CleanupFunc releases whatever Open acquired.
type CleanupFunc func() error

// Config selects and parameterizes a store.
type Config struct {
	Kind        Kind
	SQLitePath  string
	RedisURL    string
	RedisPrefix string
	DialTimeout time.Duration
}

// ConfigFrom picks the store settings out of the application config.
func ConfigFrom(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("no application config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Kind:        kind,
		SQLitePath:  cfg.SQLiteDBPath,
		RedisURL:    cfg.RedisURL,
		DialTimeout: defaultDialTimeout,
	}, nil
}

func (c Config) Validate() error {
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Kind == KindSQLite && c.SQLitePath == "" {
		return errors.New("sqlite backend needs a database path")
	}
	if c.Kind == KindRedis && c.RedisURL == "" {
		return errors.New("redis backend needs a URL")
	}
	return nil
}

// Opened is a ready store and the function that closes it.
type Opened struct {
	Store storage.Store
	Close CleanupFunc
}

// Open validates cfg and connects the store it names. SQLite stores are
// migrated to the latest schema on the way.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Opened, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentBackend)

	var (
		store storage.Store
		err   error
	)
	switch cfg.Kind {
	case KindSQLite:
		store, err = storage.NewSQLiteStore(cfg.SQLitePath)
	case KindRedis:
		store, err = storage.NewRedisStore(ctx, storage.RedisConfig{
			URL:         cfg.RedisURL,
			Prefix:      cfg.RedisPrefix,
			DialTimeout: cfg.DialTimeout,
		})
	default:
		store = storage.NewMemoryStore()
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Kind, err)
	}

	attrs := []any{"backend", string(cfg.Kind)}
	if cfg.Kind == KindSQLite {
		attrs = append(attrs, "db_path", cfg.SQLitePath)
	}
	logger.Info("Store opened", attrs...)
	return &Opened{Store: store, Close: store.Close}, nil
}
