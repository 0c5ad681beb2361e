package gateway

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/streamgate/streamgate/internal/core"
	"github.com/streamgate/streamgate/internal/media"
	"github.com/streamgate/streamgate/internal/store"
)

type stubStore struct {
	mu      sync.Mutex
	entries map[string]store.FileRef
}

func newStubStore() *stubStore {
	return &stubStore{entries: make(map[string]store.FileRef)}
}

func (s *stubStore) Put(_ context.Context, token string, ref store.FileRef, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = ref
	return nil
}

func (s *stubStore) Get(_ context.Context, token string) (store.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.entries[token]
	if !ok {
		return store.FileRef{}, store.ErrNotFound
	}
	return ref, nil
}

type fakeSource struct {
	data []byte
	mime string
}

func (s *fakeSource) Stat(_ context.Context, _ store.FileRef) (media.Meta, error) {
	return media.Meta{Size: int64(len(s.data)), MIMEType: s.mime}, nil
}

func (s *fakeSource) Open(_ context.Context, _ store.FileRef, offset int64) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data[offset:])), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestGateway provisions a gateway module against stub services and
// returns it together with the store for seeding tokens.
func newTestGateway(t *testing.T, src media.Source) (*Gateway, *stubStore) {
	t.Helper()

	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	st := newStubStore()
	appCtx.RegisterService("store.tokens", st)
	appCtx.RegisterService("media.source", src)

	g := &Gateway{}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(`bind: "127.0.0.1:0"`), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if err := g.Configure(&node); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if err := g.Provision(appCtx.ForModule("gateway.http")); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if err := g.resolveServices(); err != nil {
		t.Fatalf("resolveServices() error: %v", err)
	}
	return g, st
}

func TestHealth(t *testing.T) {
	g, _ := newTestGateway(t, &fakeSource{})
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s, want ok status", body)
	}
}

func TestStreamRoute(t *testing.T) {
	data := []byte(strings.Repeat("x", 4096))
	g, st := newTestGateway(t, &fakeSource{data: data, mime: "video/mp4"})
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	ref := store.FileRef{FileID: "f", FileUniqueID: "u", MediaType: "video", MIMEType: "video/mp4"}
	if err := st.Put(context.Background(), "tok", ref, time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/stream/tok", nil)
	req.Header.Set("Range", "bytes=0-1023")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 1024 {
		t.Errorf("body length = %d, want 1024", len(body))
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 0-1023/4096" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestMetricsExposed(t *testing.T) {
	g, st := newTestGateway(t, &fakeSource{data: []byte("hello"), mime: "text/plain"})
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	if err := st.Put(context.Background(), "tok", store.FileRef{FileID: "f"}, time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if resp, err := http.Get(srv.URL + "/stream/tok"); err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "streamgate_relay_requests_total") {
		t.Error("metrics output missing streamgate_relay_requests_total")
	}
	if !strings.Contains(string(body), "streamgate_relay_bytes_total") {
		t.Error("metrics output missing streamgate_relay_bytes_total")
	}
}

func TestPlayer(t *testing.T) {
	g, st := newTestGateway(t, &fakeSource{})
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	tests := []struct {
		name      string
		ref       store.FileRef
		wantTag   string
		wantMime  string
		avoidsTag string
	}{
		{
			name:      "video",
			ref:       store.FileRef{FileID: "f", MediaType: "video", MIMEType: "video/mp4"},
			wantTag:   "<video",
			wantMime:  "video/mp4",
			avoidsTag: "<audio",
		},
		{
			name:      "audio",
			ref:       store.FileRef{FileID: "f", MediaType: "audio", MIMEType: "audio/mpeg"},
			wantTag:   "<audio",
			wantMime:  "audio/mpeg",
			avoidsTag: "<video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := "tok_" + tt.name
			if err := st.Put(context.Background(), token, tt.ref, time.Hour); err != nil {
				t.Fatalf("Put() error: %v", err)
			}

			resp, err := http.Get(srv.URL + "/player/" + token)
			if err != nil {
				t.Fatalf("GET error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			page := string(body)
			if !strings.Contains(page, tt.wantTag) {
				t.Errorf("page missing %q", tt.wantTag)
			}
			if strings.Contains(page, tt.avoidsTag) {
				t.Errorf("page unexpectedly contains %q", tt.avoidsTag)
			}
			if !strings.Contains(page, "/stream/"+token) {
				t.Error("page missing stream link")
			}
			if !strings.Contains(page, tt.wantMime) {
				t.Errorf("page missing MIME type %q", tt.wantMime)
			}
		})
	}
}

func TestPlayerUnknownToken(t *testing.T) {
	g, _ := newTestGateway(t, &fakeSource{})
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/player/unknown")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

type recordingWebhookHandler struct {
	mu     sync.Mutex
	bodies []string
}

func (h *recordingWebhookHandler) HandleWebhook(_ context.Context, _ string, body []byte, _ http.Header) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies = append(h.bodies, string(body))
	return nil
}

func TestWebhookDispatch(t *testing.T) {
	g, _ := newTestGateway(t, &fakeSource{})
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	rec := &recordingWebhookHandler{}
	g.webhooks.Register("telegram", rec)

	resp, err := http.Post(srv.URL+"/webhook/telegram", "application/json", strings.NewReader(`{"update_id":1}`))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	rec.mu.Lock()
	got := len(rec.bodies)
	rec.mu.Unlock()
	if got != 1 {
		t.Fatalf("handler received %d bodies, want 1", got)
	}

	resp, err = http.Post(srv.URL+"/webhook/unknown", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown source status = %d, want 404", resp.StatusCode)
	}
}

func TestStartFailsWithoutServices(t *testing.T) {
	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	g := &Gateway{}
	if err := g.Provision(appCtx.ForModule("gateway.http")); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := g.resolveServices(); err == nil {
		t.Fatal("resolveServices() = nil, want error when store.tokens missing")
	}
}

func TestConfigValidateChunkSize(t *testing.T) {
	cfg := Config{ChunkSize: 1024}
	cfg.Bind = "127.0.0.1:8080"
	if err := cfg.validate(); err == nil {
		t.Error("validate() = nil, want chunk_size error")
	}

	cfg = Config{}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() with defaults error: %v", err)
	}
}
