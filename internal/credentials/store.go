package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/muurk/garagectl/internal/logging"
	"go.uber.org/zap"
)

// Listener receives the credentials after every change.
type Listener func(Credentials)

// Store is the in-memory credential record backed by a Backend.
type Store struct {
	backend Backend

	mu        sync.Mutex
	creds     Credentials
	listeners map[int]Listener
	nextID    int

	// notifyMu serializes listener calls so they observe writes in order
	notifyMu sync.Mutex
}

// NewStore loads the persisted record, if any, and returns a Store. A
// missing record yields empty credentials. Any other load failure is
// returned along with a usable empty Store.
func NewStore(backend Backend) (*Store, error) {
	s := &Store{
		backend:   backend,
		listeners: make(map[int]Listener),
	}

	creds, err := backend.Load()
	switch {
	case err == nil:
		s.creds = creds
	case errors.Is(err, ErrNotFound):
		logging.Debug("No stored credentials")
	default:
		logging.Warn("Failed to load stored credentials", zap.Error(err))
		return s, fmt.Errorf("failed to load credentials: %w", err)
	}
	return s, nil
}

// Get returns the current credentials.
func (s *Store) Get() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Set applies a partial update. When the record changes, subscribers are
// notified and the new record is persisted. A persistence failure is logged
// and returned, but the in-memory value and the notification stand.
func (s *Store) Set(u Update) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := u.Apply(s.creds)
	if next == s.creds {
		s.mu.Unlock()
		return nil
	}
	s.creds = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	logging.LogCredentialsChange(next.Endpoint, next.APIKey != "")
	for _, fn := range listeners {
		fn(next)
	}

	if err := s.backend.Save(next); err != nil {
		logging.Warn("Failed to persist credentials", zap.Error(err))
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Clear removes both the endpoint and the key.
func (s *Store) Clear() error {
	return s.Set(SetBoth("", ""))
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// snapshotListeners returns listeners in registration order. Caller holds mu.
func (s *Store) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
