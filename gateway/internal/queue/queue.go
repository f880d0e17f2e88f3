// Package queue delivers serialized comment jobs to the downstream work
// queue: a Redis list (default) or a NATS JetStream subject.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Sink receives one serialized job. jobID identifies the job for sinks that
// deduplicate on their own side.
type Sink interface {
	Push(ctx context.Context, jobID string, payload []byte) error
	Name() string
}

type listPusher interface {
	Push(ctx context.Context, queue string, payload []byte) error
}

// RedisList pushes jobs onto a Redis list.
type RedisList struct {
	store listPusher
	key   string
}

func NewRedisList(store listPusher, key string) *RedisList {
	return &RedisList{store: store, key: key}
}

func (l *RedisList) Key() string  { return l.key }
func (l *RedisList) Name() string { return "redis" }

func (l *RedisList) Push(ctx context.Context, _ string, payload []byte) error {
	return l.store.Push(ctx, l.key, payload)
}

// Publisher is the part of jetstream.JetStream used to publish jobs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamSink publishes jobs with the job id as Nats-Msg-Id, so the stream
// drops a repeat publish inside its duplicate window.
type JetStreamSink struct {
	js      Publisher
	subject string
}

func NewJetStreamSink(js Publisher, subject string) *JetStreamSink {
	return &JetStreamSink{js: js, subject: subject}
}

func (s *JetStreamSink) Name() string    { return "jetstream" }
func (s *JetStreamSink) Subject() string { return s.subject }

func (s *JetStreamSink) Push(ctx context.Context, jobID string, payload []byte) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	if _, err := s.js.Publish(ctx, s.subject, payload, jetstream.WithMsgID(jobID)); err != nil {
		return fmt.Errorf("publish to %s: %w", s.subject, err)
	}
	return nil
}
