// Package storage holds the key/value blob stores every repository is built
// on. A store maps a key to one opaque blob and keeps named counters next to
// the blobs; it knows nothing about the records inside.
package storage

import (
	"context"
	"errors"
)

// Keys of the persisted layout.
const (
	KeyUsers       = "users"
	KeyExpenses    = "expenses"
	KeyCompanies   = "companies"
	KeyCurrentUser = "currentUser"
	KeySessions    = "sessions"

	SeqExpenses  = "expenseSeq"
	SeqUsers     = "userSeq"
	SeqCompanies = "companySeq"
)

// ErrKeyNotFound is returned by Get for a key that was never written.
var ErrKeyNotFound = errors.New("key not found")

// Store is a flat blob store with no transactions and no indices.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// NextSequence atomically advances the named counter to
	// max(current, floor)+1 and returns the new value.
	NextSequence(ctx context.Context, name string, floor int64) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
