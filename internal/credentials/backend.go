package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// Bucket holds the credential record in the bolt database
	Bucket = "garagectl"
	// RecordKey names the single credential record
	RecordKey = "settings-storage"

	// DefaultOpenTimeout bounds how long Open waits for another process
	// holding the database lock
	DefaultOpenTimeout = 2 * time.Second
)

// ErrNotFound is returned by a Backend that has no record yet.
var ErrNotFound = errors.New("credentials not found")

// Backend persists the credential record.
type Backend interface {
	Load() (Credentials, error)
	Save(Credentials) error
}

// BoltBackend stores the record as JSON in a bolt database.
type BoltBackend struct {
	db    *bolt.DB
	owned bool
}

// OpenBolt opens (creating if needed) the database at path with user-only
// permissions.
func OpenBolt(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: DefaultOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials database %s: %w", path, err)
	}
	return &BoltBackend{db: db, owned: true}, nil
}

// NewBoltBackend wraps an already open database. Close leaves it open.
func NewBoltBackend(db *bolt.DB) *BoltBackend {
	return &BoltBackend{db: db}
}

// Load reads the record. ErrNotFound means nothing has been saved yet.
func (b *BoltBackend) Load() (Credentials, error) {
	var creds Credentials

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(Bucket))
		if bucket == nil {
			return ErrNotFound
		}

		value := bucket.Get([]byte(RecordKey))
		if value == nil {
			return ErrNotFound
		}

		return json.Unmarshal(value, &creds)
	})

	return creds, err
}

// Save writes the record.
func (b *BoltBackend) Save(creds Credentials) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(Bucket))
		if err != nil {
			return err
		}

		value, err := json.Marshal(creds)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(RecordKey), value)
	})
}

// Close releases the database if OpenBolt opened it.
func (b *BoltBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

// MemoryBackend keeps the record in memory. FailSave makes Save return an
// error, which tests use to exercise persistence failures.
type MemoryBackend struct {
	mu       sync.Mutex
	creds    *Credentials
	saves    int
	FailSave error
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return Credentials{}, ErrNotFound
	}
	return *m.creds, nil
}

func (m *MemoryBackend) Save(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.creds = &creds
	m.saves++
	return nil
}

// Saves returns how many writes succeeded.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
