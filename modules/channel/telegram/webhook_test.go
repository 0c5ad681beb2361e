package telegram

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestWebhookSecretValidation(t *testing.T) {
	var mu sync.Mutex
	var received []int
	recv := NewWebhookReceiver(func(_ context.Context, u *Update) {
		mu.Lock()
		received = append(received, u.UpdateID)
		mu.Unlock()
	}, discardLogger(), "s3cret")

	body := []byte(`{"update_id": 11, "message": {"message_id": 1, "chat": {"id": 42}}}`)

	headers := http.Header{}
	headers.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	if err := recv.HandleWebhook(context.Background(), "telegram", body, headers); err == nil {
		t.Error("HandleWebhook with wrong secret = nil, want error")
	}

	headers.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	if err := recv.HandleWebhook(context.Background(), "telegram", body, headers); err != nil {
		t.Fatalf("HandleWebhook() error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("update was not dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	recv := NewWebhookReceiver(func(context.Context, *Update) {
		t.Error("handler called for invalid JSON")
	}, discardLogger(), "")

	if err := recv.HandleWebhook(context.Background(), "telegram", []byte("{nope"), http.Header{}); err == nil {
		t.Error("HandleWebhook with bad JSON = nil, want error")
	}
}
