// Package store defines the token store contract shared by the streaming
// relay and the Telegram channel: opaque short-lived tokens mapping to
// immutable file references.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for unknown or expired tokens. The relay
// maps it to a 404 response; it is never an exceptional condition.
var ErrNotFound = errors.New("store: token not found")

// FileRef names a remotely-hosted media object. FileID is the opaque
// download handle; FileUniqueID is stable across bots and identifies the
// content itself. A FileRef is captured once at issuance time and never
// mutated.
type FileRef struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MIMEType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	MediaType    string `json:"media_type"`
	ChatID       int64  `json:"chat_id"`
	MessageID    int    `json:"message_id"`
}

// TokenStore maps tokens to file references with a per-entry time-to-live.
// Backends must be interchangeable from the caller's perspective: Get on an
// unknown or expired token returns ErrNotFound, never a panic or a
// backend-specific error for the expiry case.
type TokenStore interface {
	// Put stores the mapping for ttl. The token must not already exist;
	// tokens are never reused, so backends may treat Put as a blind write.
	Put(ctx context.Context, token string, ref FileRef, ttl time.Duration) error

	// Get resolves a token to its FileRef, or ErrNotFound.
	Get(ctx context.Context, token string) (FileRef, error)
}
