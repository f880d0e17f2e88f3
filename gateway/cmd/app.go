package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/telhawk-systems/hookgate/common/logging"
	natsclient "github.com/telhawk-systems/hookgate/common/messaging/nats"
	"github.com/telhawk-systems/hookgate/gateway/internal/config"
	"github.com/telhawk-systems/hookgate/gateway/internal/extract"
	"github.com/telhawk-systems/hookgate/gateway/internal/gate"
	"github.com/telhawk-systems/hookgate/gateway/internal/handlers"
	"github.com/telhawk-systems/hookgate/gateway/internal/queue"
	"github.com/telhawk-systems/hookgate/gateway/internal/ratelimit"
	"github.com/telhawk-systems/hookgate/gateway/internal/server"
	"github.com/telhawk-systems/hookgate/gateway/internal/store"
)

// app is the wired gateway. Close releases everything it opened, in reverse.
type app struct {
	store   *store.Redis
	js      *natsclient.JetStreamClient
	limiter ratelimit.RateLimiter
	gate    *gate.Gate
	handler *handlers.WebhookHandler
	router  http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	s, err := store.NewRedis(cfg.Redis.URL, cfg.Store.Timeout)
	if err != nil {
		return nil, err
	}
	a := &app{store: s}
	if err := a.wire(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewRedisRateLimiter(a.store.Client(), cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		a.limiter = limiter
		logger.Info("Rate limiting enabled",
			"requests", cfg.RateLimit.Requests,
			"window", cfg.RateLimit.Window.String(),
		)
	} else {
		a.limiter = &ratelimit.NoOpRateLimiter{}
	}

	gateOpts := []gate.Option{
		gate.WithKeyPrefix(cfg.Dedup.KeyPrefix),
		gate.WithTTL(cfg.Dedup.TTL),
		gate.WithLogger(logger),
	}

	switch cfg.Queue.Backend {
	case config.BackendJetStream:
		natsCfg := natsclient.DefaultConfig(cfg.Queue.NatsURL)
		js, err := natsclient.NewJetStreamClient(natsCfg, logger.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.js = js
		if _, err := js.EnsureStream(ctx, natsclient.CommentJobsStream); err != nil {
			return err
		}
		a.gate = gate.New(a.store, queue.NewJetStreamSink(js.JetStream(), cfg.Queue.Subject), gateOpts...)
	case config.BackendRedis:
		if cfg.Queue.Atomic {
			a.gate = gate.NewAtomic(a.store, cfg.Queue.Key, gateOpts...)
		} else {
			a.gate = gate.New(a.store, queue.NewRedisList(a.store, cfg.Queue.Key), gateOpts...)
		}
	default:
		return fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
	logger.Info("Comment gate configured",
		"backend", cfg.Queue.Backend,
		"mode", a.gate.Mode(),
	)

	a.handler = handlers.NewWebhookHandler(handlers.Config{
		Provider:     cfg.Webhook.Provider,
		AppSecret:    cfg.Webhook.AppSecret,
		VerifyToken:  cfg.Webhook.VerifyToken,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
	}, handlers.Deps{
		Extractor: extract.New(extract.WithCommentFields(cfg.Webhook.CommentFields...)),
		Gate:      a.gate,
		Limiter:   a.limiter,
		Store:     a.store,
		Logger:    logger,
	})
	a.router = server.NewRouter(a.handler, cfg.Webhook.Provider, logger.Logger)
	return nil
}

func (a *app) Close() error {
	var errs []error
	if a.limiter != nil {
		errs = append(errs, a.limiter.Close())
	}
	if a.js != nil {
		errs = append(errs, a.js.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
