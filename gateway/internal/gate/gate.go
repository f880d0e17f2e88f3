// Package gate admits each comment event at most once and hands admitted
// events to the work queue.
//
// Admission is decided by an atomic set-if-absent on a per-comment dedup key
// in Redis. When the queue is the Redis list on the same server the claim and
// the push run as one script. Otherwise the claim is taken first and released
// again if the push fails, so the platform's redelivery can retry it; only a
// crash between the two steps loses the event.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/telhawk-systems/hookgate/common/logging"
	"github.com/telhawk-systems/hookgate/gateway/internal/metrics"
	"github.com/telhawk-systems/hookgate/gateway/internal/models"
	"github.com/telhawk-systems/hookgate/gateway/internal/queue"
)

const (
	DefaultKeyPrefix = "ig:comment_seen:"
	DefaultQueueKey  = "ig:comment_jobs"
	DefaultTTL       = 7 * 24 * time.Hour
)

// Claimer takes and releases dedup markers.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// AtomicEnqueuer claims a marker and pushes a job in a single step.
type AtomicEnqueuer interface {
	ClaimAndPush(ctx context.Context, key string, ttl time.Duration, queue string, payload []byte) (bool, error)
}

// Gate is safe for concurrent use; all coordination happens in the store.
type Gate struct {
	claimer   Claimer
	sink      queue.Sink
	atomic    AtomicEnqueuer
	queueKey  string
	keyPrefix string
	ttl       time.Duration
	logger    *logging.Logger
}

type Option func(*Gate)

// WithKeyPrefix sets the dedup key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(g *Gate) {
		if prefix != "" {
			g.keyPrefix = prefix
		}
	}
}

// WithTTL sets how long a dedup marker lives.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func newGate(opts []Option) *Gate {
	g := &Gate{
		keyPrefix: DefaultKeyPrefix,
		ttl:       DefaultTTL,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewAtomic returns a gate that claims and pushes onto the list queueKey in
// one store operation.
func NewAtomic(store AtomicEnqueuer, queueKey string, opts ...Option) *Gate {
	g := newGate(opts)
	g.atomic = store
	g.queueKey = queueKey
	if g.queueKey == "" {
		g.queueKey = DefaultQueueKey
	}
	return g
}

// New returns a gate that claims through claimer and then pushes to sink.
func New(claimer Claimer, sink queue.Sink, opts ...Option) *Gate {
	g := newGate(opts)
	g.claimer = claimer
	g.sink = sink
	return g
}

// DedupKey is the marker key for commentID.
func (g *Gate) DedupKey(commentID string) string {
	return g.keyPrefix + commentID
}

// Mode names the enqueue strategy, for logs.
func (g *Gate) Mode() string {
	if g.atomic != nil {
		return "atomic"
	}
	return "claim-then-" + g.sink.Name()
}

// AdmitAndEnqueue enqueues event unless its comment was already admitted.
// A duplicate returns false with a nil error.
func (g *Gate) AdmitAndEnqueue(ctx context.Context, event models.CommentEvent) (bool, error) {
	if event.CommentID == "" {
		return false, fmt.Errorf("comment id is required")
	}

	job, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("marshal job for comment %s: %w", event.CommentID, err)
	}
	key := g.DedupKey(event.CommentID)

	var admitted bool
	if g.atomic != nil {
		admitted, err = g.claimAndPush(ctx, key, job)
	} else {
		admitted, err = g.claimThenPush(ctx, key, event.CommentID, job)
	}
	if err != nil {
		return false, err
	}

	if !admitted {
		metrics.EventsDuplicate.Inc()
		g.logger.DebugContext(ctx, "Skipping already seen comment",
			logging.Type("ig_comment_duplicate"),
			logging.CommentID(event.CommentID),
		)
		return false, nil
	}

	metrics.EventsEnqueued.Inc()
	g.logger.InfoContext(ctx, "Detected new Instagram comment",
		logging.Type("ig_comment_detected"),
		logging.CommentID(event.CommentID),
		logging.MediaID(event.MediaID),
		logging.EventTime(event.EventTime),
	)
	return true, nil
}

func (g *Gate) claimAndPush(ctx context.Context, key string, job []byte) (bool, error) {
	start := time.Now()
	admitted, err := g.atomic.ClaimAndPush(ctx, key, g.ttl, g.queueKey, job)
	metrics.StoreDuration.WithLabelValues("claim_and_push").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("claim_and_push").Inc()
		return false, err
	}
	return admitted, nil
}

func (g *Gate) claimThenPush(ctx context.Context, key, jobID string, job []byte) (bool, error) {
	start := time.Now()
	claimed, err := g.claimer.Claim(ctx, key, g.ttl)
	metrics.StoreDuration.WithLabelValues("claim").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("claim").Inc()
		return false, err
	}
	if !claimed {
		return false, nil
	}

	start = time.Now()
	pushErr := g.sink.Push(ctx, jobID, job)
	metrics.StoreDuration.WithLabelValues("push").Observe(time.Since(start).Seconds())
	if pushErr == nil {
		return true, nil
	}
	metrics.StoreErrors.WithLabelValues("push").Inc()

	// The request context may be the reason the push failed; the release
	// must still reach the store.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := g.claimer.Release(releaseCtx, key); err != nil {
		metrics.StoreErrors.WithLabelValues("release").Inc()
		g.logger.ErrorContext(ctx, "Failed to release dedup marker after enqueue failure",
			logging.Type("dedup_release_failed"),
			logging.CommentID(jobID),
			logging.Error(err),
		)
	}
	return false, fmt.Errorf("enqueue comment %s: %w", jobID, pushErr)
}
