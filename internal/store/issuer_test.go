package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingStore captures Put calls for assertions.
type recordingStore struct {
	mu      sync.Mutex
	entries map[string]FileRef
	ttls    map[string]time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		entries: make(map[string]FileRef),
		ttls:    make(map[string]time.Duration),
	}
}

func (s *recordingStore) Put(_ context.Context, token string, ref FileRef, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = ref
	s.ttls[token] = ttl
	return nil
}

func (s *recordingStore) Get(_ context.Context, token string) (FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.entries[token]
	if !ok {
		return FileRef{}, ErrNotFound
	}
	return ref, nil
}

func TestIssue(t *testing.T) {
	st := newRecordingStore()
	issuer := NewIssuer(st, 24*time.Hour)

	ref := FileRef{
		FileID:       "BAACAgQAAx0",
		FileUniqueID: "AgAD6g4AAl",
		FileName:     "movie.mp4",
		MIMEType:     "video/mp4",
		FileSize:     10_000_000,
		MediaType:    "video",
	}

	token, err := issuer.Issue(context.Background(), ref)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if len(token) != tokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(token), tokenBytes*2)
	}

	got, err := st.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != ref {
		t.Errorf("Get() = %+v, want %+v", got, ref)
	}
	if st.ttls[token] != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", st.ttls[token])
	}
}

// Issuing twice for the same FileRef must produce two distinct,
// independently resolvable tokens.
func TestIssueNoDeduplication(t *testing.T) {
	st := newRecordingStore()
	issuer := NewIssuer(st, time.Hour)

	ref := FileRef{FileID: "f", FileUniqueID: "u", MediaType: "video"}

	t1, err := issuer.Issue(context.Background(), ref)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	t2, err := issuer.Issue(context.Background(), ref)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if t1 == t2 {
		t.Fatalf("both issues returned token %q, want distinct tokens", t1)
	}
	for _, tok := range []string{t1, t2} {
		if _, err := st.Get(context.Background(), tok); err != nil {
			t.Errorf("Get(%q) error: %v", tok, err)
		}
	}
}

func TestNewTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok, err := newToken()
		if err != nil {
			t.Fatalf("newToken() error: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}
