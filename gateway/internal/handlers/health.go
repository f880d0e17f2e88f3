package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/telhawk-systems/hookgate/common/httputil"
	"github.com/telhawk-systems/hookgate/common/logging"
)

const readyTimeout = 2 * time.Second

func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready reports ready only while the store answers PING.
func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "Readiness check failed",
				logging.Type("store_unavailable"),
				logging.Error(err),
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "store unreachable",
			})
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"stats":  h.Stats(),
	})
}
