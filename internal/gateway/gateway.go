// Package gateway implements the HTTP gateway module. It exposes the
// streaming relay, the player page, health, and metrics endpoints.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/streamgate/streamgate/internal/core"
	"github.com/streamgate/streamgate/internal/media"
	"github.com/streamgate/streamgate/internal/observability"
	"github.com/streamgate/streamgate/internal/relay"
	"github.com/streamgate/streamgate/internal/store"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module — nothing
// imports it; it discovers its collaborators through the service registry.
type Gateway struct {
	config   Config
	appCtx   *core.AppContext
	logger   *slog.Logger
	server   *http.Server
	promReg  *prometheus.Registry
	tracing  *observability.TracerProvider
	webhooks *WebhookDispatcher

	// Resolved lazily at Start() via service registry.
	tokens store.TokenStore
	source media.Source
	relay  *relay.Relay
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.promReg = prometheus.NewRegistry()

	tp, err := observability.NewTracerProvider(context.Background(), g.config.Tracing)
	if err != nil {
		return err
	}
	g.tracing = tp

	g.webhooks = NewWebhookDispatcher(g.logger)
	ctx.RegisterService("gateway.webhooks", g.webhooks)

	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return g.config.validate()
}

// Start implements core.Starter. It resolves the token store and media
// source from the service registry (lazy binding, so module load order
// within a config does not matter) and starts the HTTP server.
func (g *Gateway) Start() error {
	if err := g.resolveServices(); err != nil {
		return err
	}

	g.server = &http.Server{
		Addr:        g.config.Bind,
		Handler:     g.buildRouter(),
		ReadTimeout: g.config.ReadTimeout,
		IdleTimeout: g.config.IdleTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Bind, err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds the gateway to the token store and media source
// published by other modules.
func (g *Gateway) resolveServices() error {
	svc, ok := g.appCtx.GetService("store.tokens")
	if !ok {
		return errors.New("gateway: store.tokens service not found (configure store.memory or store.redis)")
	}
	g.tokens, ok = svc.(store.TokenStore)
	if !ok {
		return errors.New("gateway: store.tokens service does not implement store.TokenStore")
	}

	svc, ok = g.appCtx.GetService("media.source")
	if !ok {
		return errors.New("gateway: media.source service not found (is channel.telegram loaded?)")
	}
	g.source, ok = svc.(media.Source)
	if !ok {
		return errors.New("gateway: media.source service does not implement media.Source")
	}

	g.relay = relay.New(g.tokens, g.source, relay.Options{
		ChunkSize:       g.config.ChunkSize,
		MetadataTimeout: g.config.MetadataTimeout,
		Logger:          g.logger,
		Metrics:         relay.NewMetrics(g.promReg),
	})
	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.tracing != nil {
		defer func() {
			if err := g.tracing.Shutdown(ctx); err != nil {
				g.logger.Warn("tracer shutdown error", "error", err)
			}
		}()
	}
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
