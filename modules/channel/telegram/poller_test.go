package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerDeliversUpdates(t *testing.T) {
	var polls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GetUpdatesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode getUpdates: %v", err)
		}

		if polls.Add(1) == 1 {
			if req.Offset != 0 {
				t.Errorf("first poll Offset = %d, want 0", req.Offset)
			}
			writeJSON(t, w, APIResponse[[]Update]{
				OK: true,
				Result: []Update{
					{UpdateID: 7, Message: &Message{MessageID: 1, Chat: Chat{ID: 1}}},
					{UpdateID: 8, Message: &Message{MessageID: 2, Chat: Chat{ID: 1}}},
				},
			})
			return
		}
		if req.Offset != 9 {
			t.Errorf("followup poll Offset = %d, want 9", req.Offset)
		}
		writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: nil})
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []int
	handler := func(_ context.Context, u *Update) {
		mu.Lock()
		got = append(got, u.UpdateID)
		mu.Unlock()
	}

	cfg := Config{}
	cfg.defaults()
	cfg.PollingTimeout = 0

	p := NewPoller(NewClient("TOKEN", srv.URL), handler, discardLogger(), cfg)
	p.Start()

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for updates")
		case <-time.After(10 * time.Millisecond):
		}
	}

	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	seen := map[int]bool{}
	for _, id := range got {
		seen[id] = true
	}
	if !seen[7] || !seen[8] {
		t.Errorf("delivered updates = %v, want 7 and 8", got)
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: nil})
	}))
	defer srv.Close()

	cfg := Config{}
	cfg.defaults()
	cfg.PollingTimeout = 0

	p := NewPoller(NewClient("TOKEN", srv.URL), func(context.Context, *Update) {}, discardLogger(), cfg)
	p.Start()

	done := make(chan struct{})
	go func() {
		p.Stop()
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
