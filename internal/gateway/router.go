package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(traceMiddleware(g.tracing.Tracer()))

	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(g.promReg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(g.config.RequestsPerMinute))
		r.Get("/stream/{token}", g.relay.HandleStream)
		r.Get("/player/{token}", g.handlePlayer())
	})

	r.Post("/webhook/{source}", g.webhooks.ServeHTTP)

	return r
}
