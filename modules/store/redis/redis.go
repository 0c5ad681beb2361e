// Package redis implements a token store backed by a shared Redis instance.
// Expiry is delegated to Redis's native TTL mechanism, so entries are
// self-deleting and the store works across multiple streamgate processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/streamgate/streamgate/internal/core"
	"github.com/streamgate/streamgate/internal/store"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ store.TokenStore  = (*Store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// keyPrefix namespaces token keys so streamgate can share a Redis database
// with other applications.
const keyPrefix = "streamgate:token:"

// Config holds the Redis store configuration.
type Config struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (c *Config) defaults() {
	if c.Address == "" {
		c.Address = "localhost:6379"
	}
	// Strip redis:// or rediss:// scheme prefixes so connection strings from
	// hosting providers work unchanged.
	c.Address = strings.TrimPrefix(c.Address, "redis://")
	c.Address = strings.TrimPrefix(c.Address, "rediss://")

	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Module wires the Redis-backed token store into the app and publishes it
// as the "store.tokens" service.
type Module struct {
	config Config
	logger *slog.Logger
	client *redis.Client
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.redis",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("redis: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	m.client = redis.NewClient(&redis.Options{
		Addr:         m.config.Address,
		Password:     m.config.Password,
		DB:           m.config.DB,
		DialTimeout:  m.config.DialTimeout,
		ReadTimeout:  m.config.ReadTimeout,
		WriteTimeout: m.config.WriteTimeout,
	})
	m.store = &Store{client: m.client}

	ctx.RegisterService("store.tokens", m.store)
	m.logger.Info("redis token store provisioned", "addr", m.config.Address, "db", m.config.DB)
	return nil
}

// Validate implements core.Validator. It verifies the Redis connection with
// a PING so misconfiguration fails at startup rather than on the first
// stream request.
func (m *Module) Validate() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.DialTimeout)
	defer cancel()
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", m.config.Address, err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("redis token store stopping")
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Store returns the underlying token store.
func (m *Module) Store() *Store {
	return m.store
}

// Store implements store.TokenStore on a Redis client. Records are JSON
// FileRef values stored with SET ... EX; eviction is entirely Redis's job.
type Store struct {
	client *redis.Client
}

// NewStore wraps an existing Redis client. Used by tests.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Put implements store.TokenStore.
func (s *Store) Put(ctx context.Context, token string, ref store.FileRef, ttl time.Duration) error {
	raw, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("redis: encode file ref: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set token: %w", err)
	}
	return nil
}

// Get implements store.TokenStore. A missing key — never written or already
// evicted by TTL — maps to store.ErrNotFound.
func (s *Store) Get(ctx context.Context, token string) (store.FileRef, error) {
	raw, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.FileRef{}, store.ErrNotFound
	}
	if err != nil {
		return store.FileRef{}, fmt.Errorf("redis: get token: %w", err)
	}

	var ref store.FileRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return store.FileRef{}, fmt.Errorf("redis: decode file ref: %w", err)
	}
	return ref, nil
}
