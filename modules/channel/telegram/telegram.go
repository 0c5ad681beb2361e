package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/streamgate/streamgate/internal/core"
	"github.com/streamgate/streamgate/internal/gateway"
	"github.com/streamgate/streamgate/internal/history"
	"github.com/streamgate/streamgate/internal/store"
)

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Telegram)(nil)
	_ core.Provisioner  = (*Telegram)(nil)
	_ core.Validator    = (*Telegram)(nil)
	_ core.Starter      = (*Telegram)(nil)
	_ core.Stopper      = (*Telegram)(nil)
)

// Telegram implements the Telegram Bot API channel: it turns incoming media
// messages into streaming links and re-sends classified documents as native
// media. It also registers the "media.source" service the relay streams from.
type Telegram struct {
	config  Config
	client  *Client
	logger  *slog.Logger
	appCtx  *core.AppContext
	botUser *User
	handler *handler

	// Set during Start() depending on mode.
	poller   *Poller
	receiver *WebhookReceiver
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The media source is registered
// here, before any module starts, so the gateway finds it regardless of
// start order.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.appCtx = ctx
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL)

	ctx.RegisterService("media.source", newBotSource(t.client))
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	if t.config.BaseURL == "" {
		return errors.New("telegram: base_url is required for player links")
	}
	switch t.config.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be \"polling\" or \"webhook\")", t.config.Mode)
	}
	if t.config.Mode == "webhook" && t.config.WebhookURL == "" {
		return errors.New("telegram: webhook_url is required when mode is \"webhook\"")
	}
	return t.config.validate()
}

// Start implements core.Starter. It validates the bot token, resolves the
// token store and the optional history backend, then starts either polling
// or webhook mode.
func (t *Telegram) Start() error {
	user, err := t.client.GetMe(context.Background())
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	issuer, err := t.resolveIssuer()
	if err != nil {
		return err
	}
	t.handler = newHandler(t.client, issuer, t.resolveHistory(), t.logger, t.config, user.Username)

	switch t.config.Mode {
	case "polling":
		// Drop any stale webhook so getUpdates is accepted.
		if err := t.client.DeleteWebhook(context.Background()); err != nil {
			t.logger.Warn("telegram: deleteWebhook before polling failed", "error", err)
		}
		t.poller = NewPoller(t.client, t.handler.HandleUpdate, t.logger, t.config)
		t.poller.Start()
		t.logger.Info("telegram polling started",
			"timeout", t.config.PollingTimeout,
		)

	case "webhook":
		if t.config.WebhookSecret == "" {
			t.logger.Warn("telegram webhook running without secret_token; " +
				"set webhook_secret for production deployments")
		}
		t.receiver = NewWebhookReceiver(t.handler.HandleUpdate, t.logger, t.config.WebhookSecret)

		if err := t.registerWebhook(); err != nil {
			return err
		}

		if err := t.client.SetWebhook(context.Background(), SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook configured",
			"url", t.config.WebhookURL,
		)
	}

	return nil
}

// resolveIssuer binds the token issuer to the configured token store.
func (t *Telegram) resolveIssuer() (*store.Issuer, error) {
	svc, ok := t.appCtx.GetService("store.tokens")
	if !ok {
		return nil, errors.New("telegram: store.tokens service not found (load a store module)")
	}
	tokens, ok := svc.(store.TokenStore)
	if !ok {
		return nil, errors.New("telegram: store.tokens service is not a store.TokenStore")
	}
	return store.NewIssuer(tokens, t.config.TokenTTL), nil
}

// resolveHistory returns the history backend if one is loaded, else nil.
func (t *Telegram) resolveHistory() history.Store {
	svc, ok := t.appCtx.GetService("history.store")
	if !ok {
		return nil
	}
	hist, ok := svc.(history.Store)
	if !ok {
		t.logger.Warn("history.store service has unexpected type, history disabled")
		return nil
	}
	return hist
}

// registerWebhook attaches the receiver to the gateway webhook dispatcher.
func (t *Telegram) registerWebhook() error {
	svc, ok := t.appCtx.GetService("gateway.webhooks")
	if !ok {
		return errors.New("telegram: gateway.webhooks service not found (is the gateway module loaded?)")
	}
	dispatcher, ok := svc.(*gateway.WebhookDispatcher)
	if !ok {
		return errors.New("telegram: gateway.webhooks is not a *gateway.WebhookDispatcher")
	}
	dispatcher.Register("telegram", t.receiver)
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")

	switch t.config.Mode {
	case "polling":
		if t.poller != nil {
			t.poller.Stop()
		}
	case "webhook":
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}
