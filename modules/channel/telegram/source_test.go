package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/streamgate/streamgate/internal/media"
	"github.com/streamgate/streamgate/internal/store"
)

// newFileServer serves getFile plus the file endpoint, optionally honoring
// Range requests.
func newFileServer(t *testing.T, content string, honorRange bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/getFile", func(w http.ResponseWriter, r *http.Request) {
		var req getFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode getFile: %v", err)
		}
		writeJSON(t, w, APIResponse[File]{
			OK: true,
			Result: File{
				FileID:   req.FileID,
				FilePath: "media/" + req.FileID,
				FileSize: int64(len(content)),
			},
		})
	})
	mux.HandleFunc("/file/botTOKEN/media/", func(w http.ResponseWriter, r *http.Request) {
		rng := r.Header.Get("Range")
		if honorRange && strings.HasPrefix(rng, "bytes=") {
			spec := strings.TrimSuffix(strings.TrimPrefix(rng, "bytes="), "-")
			offset, err := strconv.Atoi(spec)
			if err != nil || offset >= len(content) {
				w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
				return
			}
			w.WriteHeader(http.StatusPartialContent)
			_, _ = io.WriteString(w, content[offset:])
			return
		}
		_, _ = io.WriteString(w, content)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSourceStat(t *testing.T) {
	srv := newFileServer(t, "0123456789", true)
	src := newBotSource(NewClient("TOKEN", srv.URL))

	meta, err := src.Stat(context.Background(), store.FileRef{FileID: "f1", MIMEType: "video/mp4"})
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if meta.Size != 10 {
		t.Errorf("Size = %d, want 10", meta.Size)
	}
	if meta.MIMEType != "video/mp4" {
		t.Errorf("MIMEType = %q, want video/mp4", meta.MIMEType)
	}
}

func TestSourceOpenWithRange(t *testing.T) {
	srv := newFileServer(t, "0123456789", true)
	src := newBotSource(NewClient("TOKEN", srv.URL))

	rc, err := src.Open(context.Background(), store.FileRef{FileID: "f1"}, 4)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "456789" {
		t.Errorf("body = %q, want 456789", got)
	}
}

func TestSourceOpenRangeIgnoredByUpstream(t *testing.T) {
	srv := newFileServer(t, "0123456789", false)
	src := newBotSource(NewClient("TOKEN", srv.URL))

	rc, err := src.Open(context.Background(), store.FileRef{FileID: "f1"}, 4)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()

	// Offset is discarded client-side when the upstream replies 200.
	got, _ := io.ReadAll(rc)
	if string(got) != "456789" {
		t.Errorf("body = %q, want 456789", got)
	}
}

func TestSourceStatUnknownFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, APIResponse[json.RawMessage]{OK: false, ErrorCode: 400, Description: "file not found"})
	}))
	defer srv.Close()
	src := newBotSource(NewClient("TOKEN", srv.URL))

	_, err := src.Stat(context.Background(), store.FileRef{FileID: "missing"})
	if err == nil {
		t.Fatal("Stat() = nil error, want failure")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error %v does not wrap *APIError", err)
	}
}

func TestSourceOpenUpstreamFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/getFile", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, APIResponse[File]{OK: true, Result: File{FileID: "f1", FilePath: "media/f1"}})
	})
	mux.HandleFunc("/file/botTOKEN/media/f1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := newBotSource(NewClient("TOKEN", srv.URL))
	_, err := src.Open(context.Background(), store.FileRef{FileID: "f1"}, 0)
	if !errors.Is(err, media.ErrUnavailable) {
		t.Errorf("Open() error = %v, want media.ErrUnavailable", err)
	}
}
