package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/ports"
	"expenseflow/internal/storage"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions as one blob and the last logged in user under
// the currentUser key. Tokens are random handles, not credentials.
type SessionStore struct {
	mu       sync.Mutex
	sessions blobList[core.Session]
	store    storage.Store
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store. A ttl of zero keeps sessions
// until logout.
func NewSessionStore(store storage.Store, ttl time.Duration, logger *log.Logger) *SessionStore {
	return &SessionStore{
		sessions: blobList[core.Session]{
			store:  store,
			key:    storage.KeySessions,
			logger: repoLogger(logger),
			decode: decodeSessions,
			encode: encodeJSON[core.Session],
		},
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *SessionStore) expired(sess core.Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.CreatedAt) > s.ttl
}

// Create starts a session for userID, pruning expired ones.
func (s *SessionStore) Create(ctx context.Context, userID int64) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.sessions.Load(ctx)
	if err != nil {
		return core.Session{}, err
	}

	now := s.now().UTC()
	kept := all[:0]
	for _, sess := range all {
		if !s.expired(sess, now) {
			kept = append(kept, sess)
		}
	}

	sess := core.Session{Token: uuid.NewString(), UserID: userID, CreatedAt: now}
	kept = append(kept, sess)
	if err := s.sessions.Save(ctx, kept); err != nil {
		return core.Session{}, err
	}
	return sess, nil
}

// Lookup returns the live session for token or an error wrapping
// core.ErrNotFound.
func (s *SessionStore) Lookup(ctx context.Context, token string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.sessions.Load(ctx)
	if err != nil {
		return core.Session{}, err
	}
	now := s.now().UTC()
	for _, sess := range all {
		if sess.Token == token && !s.expired(sess, now) {
			return sess, nil
		}
	}
	return core.Session{}, fmt.Errorf("session: %w", core.ErrNotFound)
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.sessions.Load(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, sess := range all {
		if sess.Token != token {
			kept = append(kept, sess)
		}
	}
	return s.sessions.Save(ctx, kept)
}

// SetCurrentUser records user as the active user; nil clears it.
func (s *SessionStore) SetCurrentUser(ctx context.Context, user *core.User) error {
	if user == nil {
		if err := s.store.Delete(ctx, storage.KeyCurrentUser); err != nil {
			return fmt.Errorf("clear current user: %w", err)
		}
		return nil
	}
	public := user.Public()
	data, err := json.Marshal(public)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	if err := s.store.Put(ctx, storage.KeyCurrentUser, data); err != nil {
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}

// CurrentUser returns the active user, or nil when nobody is logged in.
func (s *SessionStore) CurrentUser(ctx context.Context) (*core.User, error) {
	data, err := s.store.Get(ctx, storage.KeyCurrentUser)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}
	var u core.User
	if err := json.Unmarshal(data, &u); err != nil || u.ID <= 0 {
		s.sessions.logger.Warn("Ignoring malformed current user record", log.FieldKey, storage.KeyCurrentUser)
		return nil, nil
	}
	return &u, nil
}
