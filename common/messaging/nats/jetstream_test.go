package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"

	"github.com/telhawk-systems/hookgate/common/messaging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("")
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	cfg = DefaultConfig("nats://queue:4222")
	assert.Equal(t, "nats://queue:4222", cfg.URL)
	assert.Equal(t, "hookgate", cfg.Name)
}

func TestCommentJobsStream(t *testing.T) {
	assert.Equal(t, "COMMENT_JOBS", CommentJobsStream.Name)
	assert.Equal(t, []string{messaging.SubjectCommentJobs}, CommentJobsStream.Subjects)
	assert.Equal(t, jetstream.WorkQueuePolicy, CommentJobsStream.Retention)
	assert.Greater(t, CommentJobsStream.Duplicates, time.Duration(0))
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := DefaultConfig("nats://127.0.0.1:1")
	cfg.MaxReconnects = 0
	cfg.Timeout = 200 * time.Millisecond

	_, err := NewJetStreamClient(cfg, nil)
	assert.Error(t, err)
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &JetStreamClient{}
	assert.NoError(t, c.Close())
}
