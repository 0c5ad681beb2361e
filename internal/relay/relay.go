// Package relay implements the token-addressed streaming relay: it resolves
// a token to a file reference, opens a chunked upstream download at the
// requested offset, and forwards bytes to the client as they arrive. The
// whole object is never buffered in memory or on disk.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/streamgate/internal/media"
	"github.com/streamgate/streamgate/internal/store"
	"github.com/streamgate/streamgate/pkg/httprange"
)

const (
	// DefaultChunkSize is the per-read upstream fetch size. It is the only
	// performance-relevant tunable: larger chunks cost memory per in-flight
	// request, smaller chunks cost upstream round-trips.
	DefaultChunkSize = 512 * 1024

	// MinChunkSize and MaxChunkSize bound the configurable chunk size.
	MinChunkSize = 256 * 1024
	MaxChunkSize = 1024 * 1024

	// DefaultMetadataTimeout bounds the upstream metadata lookup.
	DefaultMetadataTimeout = 10 * time.Second
)

// Relay serves GET /stream/{token} requests.
type Relay struct {
	store       store.TokenStore
	source      media.Source
	chunkSize   int
	metaTimeout time.Duration
	logger      *slog.Logger
	metrics     *Metrics
}

// Options configures a Relay. Zero fields fall back to defaults.
type Options struct {
	ChunkSize       int
	MetadataTimeout time.Duration
	Logger          *slog.Logger
	Metrics         *Metrics
}

// New creates a Relay reading tokens from st and bytes from src.
func New(st store.TokenStore, src media.Source, opts Options) *Relay {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MetadataTimeout == 0 {
		opts.MetadataTimeout = DefaultMetadataTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Relay{
		store:       st,
		source:      src,
		chunkSize:   opts.ChunkSize,
		metaTimeout: opts.MetadataTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// HandleStream is the handler for GET /stream/{token}.
func (r *Relay) HandleStream(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	token := chi.URLParam(req, "token")

	ref, err := r.store.Get(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		// No upstream contact for dead tokens.
		r.fail(w, http.StatusNotFound, "invalid or expired token")
		return
	}
	if err != nil {
		r.logger.Error("token lookup failed", "error", err)
		r.fail(w, http.StatusInternalServerError, "token lookup failed")
		return
	}

	meta, err := r.stat(ctx, ref)
	if err != nil {
		r.upstreamError(w, err, "metadata fetch failed")
		return
	}

	rangeHeader := req.Header.Get("Range")

	// Partial requests need a known total size to produce a Content-Range.
	if rangeHeader != "" && meta.Size == media.SizeUnknown {
		r.unsatisfiable(w, meta.Size)
		return
	}

	window, err := httprange.Resolve(rangeHeader, meta.Size)
	if errors.Is(err, httprange.ErrUnsatisfiable) {
		r.unsatisfiable(w, meta.Size)
		return
	}
	if err != nil {
		r.fail(w, http.StatusInternalServerError, "range resolution failed")
		return
	}

	body, err := r.source.Open(ctx, ref, window.Start)
	if err != nil {
		r.upstreamError(w, err, "upstream open failed")
		return
	}
	defer body.Close()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	contentType := meta.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	status := http.StatusOK
	if rangeHeader != "" {
		status = http.StatusPartialContent
		h.Set("Content-Range", window.ContentRange())
		h.Set("Content-Length", fmt.Sprintf("%d", window.Length()))
	} else if !window.OpenEnded() {
		h.Set("Content-Length", fmt.Sprintf("%d", window.Length()))
	}
	w.WriteHeader(status)

	sent, err := r.copyWindow(ctx, w, body, window.Length())
	r.metrics.ObserveRequest(status, sent)
	if err != nil {
		// Bytes already written cannot be retracted; the connection is
		// simply terminated. A client disconnect is routine, not an error.
		if ctx.Err() != nil {
			r.logger.Debug("client disconnected mid-stream", "token", token, "sent", sent)
			return
		}
		r.logger.Warn("stream terminated early", "token", token, "sent", sent, "error", err)
	}
}

// copyWindow forwards up to limit bytes (unlimited when limit < 0) from
// upstream to the client in chunk-sized reads, flushing after each chunk so
// bytes reach the client as soon as they arrive.
func (r *Relay) copyWindow(ctx context.Context, w http.ResponseWriter, body io.Reader, limit int64) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, r.chunkSize)

	var sent int64
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		readSize := int64(len(buf))
		if limit >= 0 {
			remaining := limit - sent
			if remaining == 0 {
				return sent, nil
			}
			if remaining < readSize {
				readSize = remaining
			}
		}

		n, readErr := body.Read(buf[:readSize])
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return sent, writeErr
			}
			sent += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return sent, nil
			}
			return sent, readErr
		}
	}
}

func (r *Relay) stat(ctx context.Context, ref store.FileRef) (media.Meta, error) {
	statCtx, cancel := context.WithTimeout(ctx, r.metaTimeout)
	defer cancel()
	return r.source.Stat(statCtx, ref)
}

func (r *Relay) unsatisfiable(w http.ResponseWriter, total int64) {
	w.Header().Set("Content-Range", httprange.ContentRangeUnsatisfied(total))
	r.fail(w, http.StatusRequestedRangeNotSatisfiable, "range not satisfiable")
}

// upstreamError maps upstream failures to 502, timeouts to 504. Neither is
// retried: the failure is surfaced once and the client decides.
func (r *Relay) upstreamError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	r.logger.Warn(msg, "error", err)
	r.fail(w, status, msg)
}

func (r *Relay) fail(w http.ResponseWriter, status int, msg string) {
	r.metrics.ObserveRequest(status, 0)
	http.Error(w, msg, status)
}
