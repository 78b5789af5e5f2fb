package store

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/odoodash/gateway/ports"
)

// DefaultChallengeTTL is how long an unconsumed challenge token stays live.
const DefaultChallengeTTL = time.Hour

// Delimiter joins the registry id and the secret in the wire form "id:secret".
const Delimiter = ":"

type entry struct {
	secret    string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the ChallengeStore interface.
// Consumption is atomic with removal: at most one Consume of a given token
// ever succeeds, even when calls race. Stale entries are evicted on
// encounter and swept on every Issue to bound memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory challenge store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates a fresh single-use token "id:secret".
func (s *MemoryStore) Issue(ctx context.Context) (string, error) {
	id, err := randomHex(16)
	if err != nil {
		return "", err
	}
	secret, err := randomHex(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.entries[id] = entry{secret: secret, expiresAt: s.now().Add(s.ttl)}

	return id + Delimiter + secret, nil
}

// Consume validates a token and removes it in the same atomic step.
func (s *MemoryStore) Consume(ctx context.Context, token string) (bool, error) {
	id, secret, ok := strings.Cut(token, Delimiter)
	if !ok || id == "" || secret == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if s.now().After(stored.expiresAt) {
		delete(s.entries, id)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored.secret), []byte(secret)) != 1 {
		return false, nil
	}

	delete(s.entries, id)
	return true, nil
}

// Len reports the number of live entries. Useful for tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func randomHex(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

var _ ports.ChallengeStore = (*MemoryStore)(nil)
