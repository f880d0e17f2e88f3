package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/telhawk-systems/hookgate/common/httputil"
	"github.com/telhawk-systems/hookgate/common/logging"
	"github.com/telhawk-systems/hookgate/gateway/internal/extract"
	"github.com/telhawk-systems/hookgate/gateway/internal/metrics"
	"github.com/telhawk-systems/hookgate/gateway/internal/models"
	"github.com/telhawk-systems/hookgate/gateway/internal/payload"
	"github.com/telhawk-systems/hookgate/gateway/internal/ratelimit"
	"github.com/telhawk-systems/hookgate/gateway/internal/signature"
)

// Admitter admits a comment event at most once.
type Admitter interface {
	AdmitAndEnqueue(ctx context.Context, event models.CommentEvent) (bool, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the per-provider webhook settings.
type Config struct {
	Provider     string
	AppSecret    string
	VerifyToken  string
	MaxBodyBytes int64
}

// Deps are the collaborators a WebhookHandler drives.
type Deps struct {
	Extractor *extract.Extractor
	Gate      Admitter
	Limiter   ratelimit.RateLimiter
	Store     Pinger
	Logger    *logging.Logger
}

type WebhookHandler struct {
	cfg       Config
	verifier  *signature.Verifier
	extractor *extract.Extractor
	gate      Admitter
	limiter   ratelimit.RateLimiter
	store     Pinger
	logger    *logging.Logger

	notifications     atomic.Int64
	eventsExtracted   atomic.Int64
	eventsEnqueued    atomic.Int64
	eventsDuplicate   atomic.Int64
	signatureFailures atomic.Int64
	startedAt         time.Time
}

func NewWebhookHandler(cfg Config, deps Deps) *WebhookHandler {
	if deps.Extractor == nil {
		deps.Extractor = extract.New()
	}
	if deps.Limiter == nil {
		deps.Limiter = &ratelimit.NoOpRateLimiter{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &WebhookHandler{
		cfg:       cfg,
		verifier:  signature.NewVerifier(cfg.AppSecret),
		extractor: deps.Extractor,
		gate:      deps.Gate,
		limiter:   deps.Limiter,
		store:     deps.Store,
		logger:    deps.Logger.With(logging.Provider(cfg.Provider)),
		startedAt: time.Now().UTC(),
	}
}

// HandleWebhook serves both the subscription handshake (GET) and change
// notifications (POST) on the provider's webhook path.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.HandleVerify(w, r)
	case http.MethodPost:
		h.HandleNotification(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		httputil.WriteError(w, http.StatusMethodNotAllowed, models.ErrTextMethodNotAllowed)
	}
}

// HandleVerify answers the subscription handshake. Any mismatch gets a bare
// 403 so the caller learns nothing about which check failed.
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")

	if mode != "subscribe" || !q.Has("hub.challenge") ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.VerifyToken)) != 1 {
		metrics.VerificationChallenges.WithLabelValues("rejected").Inc()
		h.logger.WarnContext(r.Context(), "Rejected webhook verification challenge",
			logging.Type("verification_rejected"),
			logging.IP(httputil.GetClientIP(r)),
		)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	metrics.VerificationChallenges.WithLabelValues("accepted").Inc()
	httputil.WriteText(w, http.StatusOK, q.Get("hub.challenge"))
}

// HandleNotification authenticates a change notification, extracts comment
// events and admits each one through the gate. The response never reveals
// per-event dedup outcomes.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.notifications.Add(1)
	clientIP := httputil.GetClientIP(r)

	if !httputil.IsJSONContentType(r) {
		h.logger.WarnContext(ctx, "Expected application/json request body",
			logging.Type("invalid_payload_body"),
			logging.IP(clientIP),
		)
		h.reject(w, http.StatusBadRequest, models.ErrTextMalformedJSON, metrics.OutcomeMalformed)
		return
	}

	body, err := httputil.ReadBody(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to read webhook body",
			logging.Type("invalid_payload_body"),
			logging.IP(clientIP),
			logging.Error(err),
		)
		h.reject(w, http.StatusBadRequest, models.ErrTextMalformedJSON, metrics.OutcomeMalformed)
		return
	}
	metrics.NotificationBytesTotal.Add(float64(len(body)))

	allowed, err := h.limiter.Allow(ctx, clientIP)
	if err != nil {
		// Fail open.
		h.logger.WarnContext(ctx, "Rate limit check failed",
			logging.Type("rate_limit_error"),
			logging.Error(err),
		)
	} else if !allowed {
		h.reject(w, http.StatusTooManyRequests, models.ErrTextTooManyRequests, metrics.OutcomeRateLimited)
		return
	}

	if err := h.verifier.Verify(r.Header, body); err != nil {
		h.signatureFailures.Add(1)
		h.logger.WarnContext(ctx, "Failed to verify X-Hub-Signature-256",
			logging.Type("signature_verification_failed"),
			logging.IP(clientIP),
			logging.Error(err),
		)
		h.reject(w, http.StatusUnauthorized, models.ErrTextInvalidSignature, metrics.OutcomeUnauthorized)
		return
	}

	env, err := payload.Parse(body)
	switch {
	case errors.Is(err, payload.ErrMalformedPayload):
		h.logger.WarnContext(ctx, "Failed to parse webhook payload JSON",
			logging.Type("json_parse_error"),
			logging.Error(err),
		)
		h.reject(w, http.StatusBadRequest, models.ErrTextMalformedJSON, metrics.OutcomeMalformed)
		return
	case errors.Is(err, payload.ErrUnrecognizedShape):
		h.logger.WarnContext(ctx, "Received payload without required fields",
			logging.Type("unexpected_payload_shape"),
			logging.Error(err),
		)
		h.acknowledge(w, metrics.OutcomeIgnored)
		return
	case err != nil:
		h.fail(ctx, w, err)
		return
	}

	if err := h.process(ctx, env); err != nil {
		h.fail(ctx, w, err)
		return
	}

	h.acknowledge(w, metrics.OutcomeAccepted)
}

// process admits events in payload order and stops at the first store
// failure; the platform redelivers the whole notification and already
// admitted events are then deduplicated.
func (h *WebhookHandler) process(ctx context.Context, env *payload.Envelope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while processing notification: %v", rec)
		}
	}()

	events := h.extractor.Extract(env)
	h.eventsExtracted.Add(int64(len(events)))
	metrics.EventsExtracted.Add(float64(len(events)))

	for _, event := range events {
		admitted, err := h.gate.AdmitAndEnqueue(ctx, event)
		if err != nil {
			return fmt.Errorf("admit comment %s: %w", event.CommentID, err)
		}
		if admitted {
			h.eventsEnqueued.Add(1)
		} else {
			h.eventsDuplicate.Add(1)
		}
	}
	return nil
}

func (h *WebhookHandler) acknowledge(w http.ResponseWriter, outcome string) {
	metrics.NotificationsTotal.WithLabelValues(h.cfg.Provider, outcome).Inc()
	httputil.WriteJSON(w, http.StatusOK, models.ReceivedResponse{Received: true})
}

func (h *WebhookHandler) reject(w http.ResponseWriter, status int, msg, outcome string) {
	metrics.NotificationsTotal.WithLabelValues(h.cfg.Provider, outcome).Inc()
	httputil.WriteError(w, status, msg)
}

func (h *WebhookHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.ErrorContext(ctx, "Failed to process webhook payload",
		logging.Type("webhook_processing_error"),
		logging.Error(err),
	)
	h.reject(w, http.StatusInternalServerError, models.ErrTextInternal, metrics.OutcomeFailed)
}

// Stats returns counters accumulated since the handler was created.
func (h *WebhookHandler) Stats() models.PipelineStats {
	return models.PipelineStats{
		Notifications:    h.notifications.Load(),
		EventsExtracted:  h.eventsExtracted.Load(),
		EventsEnqueued:   h.eventsEnqueued.Load(),
		EventsDuplicate:  h.eventsDuplicate.Load(),
		SignatureFailure: h.signatureFailures.Load(),
		StartedAt:        h.startedAt,
	}
}
