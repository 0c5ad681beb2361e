// Package history defines the issuance-history contract. A history backend
// registers itself as the "history.store" service; consumers treat it as
// optional and degrade gracefully when no backend is loaded.
package history

import (
	"context"
	"time"
)

// Record is one issued streaming link.
type Record struct {
	Token     string
	ChatID    int64
	FileName  string
	MediaType string
	FileSize  int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Store persists issuance records.
type Store interface {
	// Record stores a newly issued link.
	Record(ctx context.Context, rec Record) error

	// Recent returns up to limit records for a chat, newest first.
	Recent(ctx context.Context, chatID int64, limit int) ([]Record, error)

	// PruneExpired deletes records whose expiry is at or before now and
	// returns the number of rows removed.
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}
