package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	queue   string
	payload []byte
	err     error
}

func (p *recordingPusher) Push(_ context.Context, queue string, payload []byte) error {
	p.queue = queue
	p.payload = payload
	return p.err
}

type fakePublisher struct {
	subject string
	data    []byte
	opts    int
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.subject = subject
	f.data = data
	f.opts = len(opts)
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: "COMMENT_JOBS", Sequence: 1}, nil
}

func TestRedisList_Push(t *testing.T) {
	p := &recordingPusher{}
	sink := NewRedisList(p, "ig:comment_jobs")

	require.NoError(t, sink.Push(context.Background(), "c1", []byte(`{"commentId":"c1"}`)))
	assert.Equal(t, "ig:comment_jobs", p.queue)
	assert.Equal(t, `{"commentId":"c1"}`, string(p.payload))
	assert.Equal(t, "redis", sink.Name())
	assert.Equal(t, "ig:comment_jobs", sink.Key())

	p.err = errors.New("down")
	assert.Error(t, sink.Push(context.Background(), "c1", nil))
}

func TestJetStreamSink_Push(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewJetStreamSink(pub, "ig.comment_jobs.created")

	require.NoError(t, sink.Push(context.Background(), "c1", []byte(`{"commentId":"c1"}`)))
	assert.Equal(t, "ig.comment_jobs.created", pub.subject)
	assert.Equal(t, `{"commentId":"c1"}`, string(pub.data))
	assert.Equal(t, 1, pub.opts, "message id option is set")
	assert.Equal(t, "jetstream", sink.Name())
	assert.Equal(t, "ig.comment_jobs.created", sink.Subject())
}

func TestJetStreamSink_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	sink := NewJetStreamSink(pub, "ig.comment_jobs.created")

	err := sink.Push(context.Background(), "c1", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ig.comment_jobs.created")

	assert.Error(t, sink.Push(context.Background(), "", []byte("{}")))
}
