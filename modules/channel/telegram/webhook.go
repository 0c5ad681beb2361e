package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// WebhookReceiver processes incoming Telegram webhook payloads. It
// implements gateway.WebhookHandler.
type WebhookReceiver struct {
	handler func(ctx context.Context, update *Update)
	logger  *slog.Logger
	secret  string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(handler func(ctx context.Context, update *Update), logger *slog.Logger, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		handler: handler,
		logger:  logger,
		secret:  secret,
	}
}

// HandleWebhook validates the Telegram secret token header, parses the
// update, and dispatches it. Dispatch runs on its own goroutine detached
// from the request context: Telegram expects a prompt 200, and a document
// re-send can outlive the webhook request by minutes.
func (w *WebhookReceiver) HandleWebhook(_ context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return errors.New("telegram: invalid webhook secret token")
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return errors.New("telegram: invalid update JSON: " + err.Error())
	}

	go w.handler(context.Background(), &update)
	return nil
}
