package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("checkout session not found")

// the gate self-heals if a holder dies mid-call
const processingGateTTL = 30 * time.Second

// Store persists checkout sessions and provides the atomic processing gate
// that serializes order and gateway calls per session.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error

	// AcquireProcessing is an atomic test-and-set; false means another call
	// already holds the gate.
	AcquireProcessing(ctx context.Context, id string) (bool, error)
	ReleaseProcessing(ctx context.Context, id string) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memoryStore keeps serialized sessions in a map. Serializing on both paths
// keeps its visibility semantics identical to the Redis store.
type memoryStore struct {
	mu         sync.Mutex
	sessions   map[string]memoryEntry
	processing map[string]time.Time
	ttl        time.Duration
}

func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		sessions:   make(map[string]memoryEntry),
		processing: make(map[string]time.Time),
		ttl:        ttl,
	}
}

func (m *memoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok && time.Now().After(entry.expiresAt) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	var session Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.processing, id)
	return nil
}

func (m *memoryStore) AcquireProcessing(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if until, ok := m.processing[id]; ok && time.Now().Before(until) {
		return false, nil
	}
	m.processing[id] = time.Now().Add(processingGateTTL)
	return true, nil
}

func (m *memoryStore) ReleaseProcessing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.processing, id)
	return nil
}
