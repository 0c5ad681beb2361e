// Package memory implements a process-local token store. Expiry is checked
// lazily at read time; there is no background sweeper, so an entry for an
// expired token lingers until the next Get touches it.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamgate/streamgate/internal/core"
	"github.com/streamgate/streamgate/internal/store"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ store.TokenStore = (*Store)(nil)
	_ core.Provisioner = (*Module)(nil)
)

// Module wires the in-memory store into the app and publishes it as the
// "store.tokens" service.
type Module struct {
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.memory",
		New: func() core.Module { return &Module{} },
	}
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.store = NewStore()
	ctx.RegisterService("store.tokens", m.store)
	m.logger.Info("in-memory token store provisioned")
	return nil
}

// Store returns the underlying token store.
func (m *Module) Store() *Store {
	return m.store
}

type entry struct {
	ref       store.FileRef
	expiresAt time.Time
}

// Store is a mutex-guarded map from token to file reference. The lock is
// held only for the map operation itself, including the atomic
// check-and-delete of expired entries on Get.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry

	// now is replaceable for tests.
	now func() time.Time
}

// NewStore creates an empty in-memory token store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Put implements store.TokenStore.
func (s *Store) Put(_ context.Context, token string, ref store.FileRef, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = entry{
		ref:       ref,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Get implements store.TokenStore. Expired entries are deleted under the
// same lock as the lookup, so a concurrent Get never resurrects them.
func (s *Store) Get(_ context.Context, token string) (store.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return store.FileRef{}, store.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, token)
		return store.FileRef{}, store.ErrNotFound
	}
	return e.ref, nil
}

// Len returns the number of entries currently held, including entries whose
// TTL has elapsed but which no Get has touched yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
