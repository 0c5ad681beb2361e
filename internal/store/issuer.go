package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// tokenBytes is the entropy of a minted token. 16 bytes (128 bits) makes
// guessing infeasible within any realistic TTL.
const tokenBytes = 16

// Issuer mints tokens for file references and persists the mapping.
//
// Issuing twice for the same FileRef yields two independent, unrelated
// tokens; there is no deduplication by content.
type Issuer struct {
	store TokenStore
	ttl   time.Duration
}

// NewIssuer creates an Issuer writing to the given store with the given TTL.
func NewIssuer(s TokenStore, ttl time.Duration) *Issuer {
	return &Issuer{store: s, ttl: ttl}
}

// TTL returns the configured token time-to-live.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a fresh token for ref and stores the mapping.
func (i *Issuer) Issue(ctx context.Context, ref FileRef) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := i.store.Put(ctx, token, ref, i.ttl); err != nil {
		return "", fmt.Errorf("store: persisting token: %w", err)
	}
	return token, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("store: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
