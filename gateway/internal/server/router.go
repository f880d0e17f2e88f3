package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/hookgate/common/middleware"
	"github.com/telhawk-systems/hookgate/gateway/internal/handlers"
)

// NewRouter constructs a ServeMux with the webhook routes for provider
// registered.
func NewRouter(h *handlers.WebhookHandler, provider string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Webhook endpoint: GET handshake, POST notifications
	mux.HandleFunc("/webhooks/"+provider, h.HandleWebhook)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(middleware.AccessLog(logger)(mux))
}
