// Package media defines the upstream media source contract consumed by the
// streaming relay. Implementations live with their transport (the Telegram
// channel module provides one over the Bot API file endpoints).
package media

import (
	"context"
	"errors"
	"io"

	"github.com/streamgate/streamgate/internal/store"
)

// SizeUnknown marks an object whose total size the upstream cannot report.
const SizeUnknown int64 = -1

// ErrUnavailable reports that the upstream could not serve the request:
// the file reference is stale or revoked, or the fetch failed. The relay
// maps it to a 502 response.
var ErrUnavailable = errors.New("media: upstream unavailable")

// Meta is the cheap per-object metadata fetched before streaming begins.
type Meta struct {
	// Size is the total object size in bytes, or SizeUnknown.
	Size int64

	// MIMEType is the object's content type, empty if unknown.
	MIMEType string
}

// Source is a remote media store supporting metadata lookup and chunked
// downloads from an arbitrary byte offset.
type Source interface {
	// Stat returns the object's metadata without fetching the body.
	Stat(ctx context.Context, ref store.FileRef) (Meta, error)

	// Open starts a download at the given byte offset. The returned reader
	// yields bytes as they arrive from upstream; cancelling ctx must abort
	// the transfer promptly. The caller owns the reader and must close it.
	Open(ctx context.Context, ref store.FileRef, offset int64) (io.ReadCloser, error)
}
