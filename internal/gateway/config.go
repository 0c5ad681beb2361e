package gateway

import (
	"fmt"
	"time"

	"github.com/streamgate/streamgate/internal/observability"
	"github.com/streamgate/streamgate/internal/relay"
)

// Config holds the HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ChunkSize is the upstream fetch size per read while streaming.
	ChunkSize int `yaml:"chunk_size"`

	// MetadataTimeout bounds the upstream metadata lookup per request.
	MetadataTimeout time.Duration `yaml:"metadata_timeout"`

	// RequestsPerMinute caps stream/player requests per client address.
	// Zero disables rate limiting.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	Tracing observability.TracingConfig `yaml:"tracing"`
}

// defaults applies default values to unset fields.
//
// There is deliberately no write timeout: a stream of a large object at
// client speed can legitimately take hours, and cancellation is handled
// per-request through the connection context instead.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "0.0.0.0:8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = relay.DefaultChunkSize
	}
	if c.MetadataTimeout == 0 {
		c.MetadataTimeout = relay.DefaultMetadataTimeout
	}
}

func (c *Config) validate() error {
	if c.ChunkSize < relay.MinChunkSize || c.ChunkSize > relay.MaxChunkSize {
		return fmt.Errorf("gateway: chunk_size must be %d-%d bytes, got %d",
			relay.MinChunkSize, relay.MaxChunkSize, c.ChunkSize)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("gateway: requests_per_minute must be non-negative, got %d", c.RequestsPerMinute)
	}
	return nil
}
