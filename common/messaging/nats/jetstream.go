package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/telhawk-systems/hookgate/common/messaging"
)

// StreamConfig is the subset of jetstream.StreamConfig hookgate manages.
type StreamConfig struct {
	Name      string
	Subjects  []string
	MaxAge    time.Duration
	MaxBytes  int64
	MaxMsgs   int64
	Retention jetstream.RetentionPolicy
	Storage   jetstream.StorageType

	// Duplicates is the server-side window in which a repeated Nats-Msg-Id
	// is dropped.
	Duplicates time.Duration
}

// CommentJobsStream holds admitted comment jobs until a worker acks them.
var CommentJobsStream = StreamConfig{
	Name:       "COMMENT_JOBS",
	Subjects:   []string{messaging.SubjectCommentJobs},
	MaxAge:     7 * 24 * time.Hour,
	MaxBytes:   1024 * 1024 * 1024,
	MaxMsgs:    1000000,
	Retention:  jetstream.WorkQueuePolicy,
	Storage:    jetstream.FileStorage,
	Duplicates: 2 * time.Minute,
}

// JetStreamClient owns a NATS connection and its JetStream context.
type JetStreamClient struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewJetStreamClient connects to NATS and opens a JetStream context.
func NewJetStreamClient(cfg Config, logger *slog.Logger) (*JetStreamClient, error) {
	conn, err := Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{conn: conn, js: js}, nil
}

// JetStream exposes the underlying JetStream context.
func (c *JetStreamClient) JetStream() jetstream.JetStream {
	return c.js
}

// EnsureStream creates the stream or updates it to match cfg.
func (c *JetStreamClient) EnsureStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.Subjects,
		MaxAge:     cfg.MaxAge,
		MaxBytes:   cfg.MaxBytes,
		MaxMsgs:    cfg.MaxMsgs,
		Retention:  cfg.Retention,
		Storage:    cfg.Storage,
		Duplicates: cfg.Duplicates,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}
	return stream, nil
}

// Close drains pending publishes and closes the connection.
func (c *JetStreamClient) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
