package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/hookgate/gateway/internal/models"
	"github.com/telhawk-systems/hookgate/gateway/internal/payload"
)

var fixedNow = time.Unix(1800000000, 0)

func parse(t *testing.T, body string) *payload.Envelope {
	t.Helper()
	env, err := payload.Parse([]byte(body))
	require.NoError(t, err)
	return env
}

func newTestExtractor(opts ...Option) *Extractor {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(opts...)
}

func TestExtract_SingleComment(t *testing.T) {
	env := parse(t, `{"object":"instagram","entry":[{"id":"1","time":1700000000,"changes":[{"field":"comments","value":{"id":"c1","media_id":"m1"}}]}]}`)

	events := newTestExtractor().Extract(env)
	assert.Equal(t, []models.CommentEvent{{CommentID: "c1", MediaID: "m1", EventTime: 1700000000}}, events)
}

func TestExtract_EmptyEntries(t *testing.T) {
	assert.Empty(t, newTestExtractor().Extract(parse(t, `{"entry":[]}`)))
	assert.Empty(t, newTestExtractor().Extract(nil))
}

func TestExtract_CommentIDPreferredOverID(t *testing.T) {
	env := parse(t, `{"entry":[{"id":"1","time":1,"changes":[{"field":"comments","value":{"comment_id":"primary","id":"fallback","media_id":"m1"}}]}]}`)

	events := newTestExtractor().Extract(env)
	require.Len(t, events, 1)
	assert.Equal(t, "primary", events[0].CommentID)
}

func TestExtract_NonStringCommentIDFallsBackToID(t *testing.T) {
	env := parse(t, `{"entry":[{"id":"1","time":1,"changes":[{"field":"comments","value":{"comment_id":17,"id":"fallback","media_id":"m1"}}]}]}`)

	events := newTestExtractor().Extract(env)
	require.Len(t, events, 1)
	assert.Equal(t, "fallback", events[0].CommentID)
}

func TestExtract_FieldMatchingIsCaseInsensitive(t *testing.T) {
	env := parse(t, `{"entry":[{"id":"1","time":5,"changes":[
		{"field":"COMMENTS","value":{"id":"c1","media_id":"m1"}},
		{"field":"Instagram_Comments","value":{"id":"c2","media_id":"m1"}},
		{"field":"mentions","value":{"id":"c3","media_id":"m1"}}
	]}]}`)

	events := newTestExtractor().Extract(env)
	require.Len(t, events, 2)
	assert.Equal(t, "c1", events[0].CommentID)
	assert.Equal(t, "c2", events[1].CommentID)
}

func TestExtract_MissingTimeUsesClock(t *testing.T) {
	env := parse(t, `{"entry":[
		{"id":"1","changes":[{"field":"comments","value":{"id":"c1","media_id":"m1"}}]},
		{"id":"2","time":0,"changes":[{"field":"comments","value":{"id":"c2","media_id":"m1"}}]},
		{"id":"3","time":"1700000000","changes":[{"field":"comments","value":{"id":"c3","media_id":"m1"}}]}
	]}`)

	events := newTestExtractor().Extract(env)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, fixedNow.Unix(), ev.EventTime, ev.CommentID)
	}
}

func TestExtract_MissingTimeUsesWallClock(t *testing.T) {
	env := parse(t, `{"entry":[{"id":"1","changes":[{"field":"comments","value":{"id":"c1","media_id":"m1"}}]}]}`)

	before := time.Now().Unix()
	events := New().Extract(env)
	after := time.Now().Unix()

	require.Len(t, events, 1)
	assert.GreaterOrEqual(t, events[0].EventTime, before)
	assert.LessOrEqual(t, events[0].EventTime, after)
}

func TestExtract_EntryTimeSharedByChanges(t *testing.T) {
	env := parse(t, `{"entry":[{"id":"1","time":1700000123,"changes":[
		{"field":"comments","value":{"id":"c1","media_id":"m1"}},
		{"field":"comments","value":{"id":"c2","media_id":"m2"}}
	]}]}`)

	events := newTestExtractor().Extract(env)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1700000123), events[0].EventTime)
	assert.Equal(t, int64(1700000123), events[1].EventTime)
}

func TestExtract_SkipsInvalidItemsKeepsSiblings(t *testing.T) {
	env := parse(t, `{"entry":[
		null,
		"entry",
		{"time":1,"changes":[{"field":"comments","value":{"id":"no-entry-id","media_id":"m"}}]},
		{"id":7,"time":1,"changes":[{"field":"comments","value":{"id":"numeric-entry-id","media_id":"m"}}]},
		{"id":"1","time":1,"changes":{"field":"comments"}},
		{"id":"2","time":1,"changes":[
			null,
			{"value":{"id":"no-field","media_id":"m"}},
			{"field":"comments"},
			{"field":"comments","value":"string"},
			{"field":"comments","value":["array"]},
			{"field":"comments","value":{"media_id":"m"}},
			{"field":"comments","value":{"id":"no-media"}},
			{"field":"comments","value":{"id":"numeric-media","media_id":5}},
			{"field":"comments","value":{"id":"","media_id":"m"}},
			{"field":"comments","value":{"id":"good-1","media_id":"m1"}}
		]},
		{"id":"3","time":2,"changes":[{"field":"instagram_comments","value":{"comment_id":"good-2","media_id":"m2"}}]}
	]}`)

	events := newTestExtractor().Extract(env)
	assert.Equal(t, []models.CommentEvent{
		{CommentID: "good-1", MediaID: "m1", EventTime: 1},
		{CommentID: "good-2", MediaID: "m2", EventTime: 2},
	}, events)
}

func TestExtract_PreservesPayloadOrder(t *testing.T) {
	env := parse(t, `{"entry":[
		{"id":"b","time":1,"changes":[{"field":"comments","value":{"id":"3","media_id":"m"}},{"field":"comments","value":{"id":"1","media_id":"m"}}]},
		{"id":"a","time":1,"changes":[{"field":"comments","value":{"id":"2","media_id":"m"}}]}
	]}`)

	events := newTestExtractor().Extract(env)
	require.Len(t, events, 3)
	assert.Equal(t, "3", events[0].CommentID)
	assert.Equal(t, "1", events[1].CommentID)
	assert.Equal(t, "2", events[2].CommentID)
}

func TestWithCommentFields(t *testing.T) {
	env := parse(t, `{"entry":[{"id":"1","time":1,"changes":[
		{"field":"comments","value":{"id":"c1","media_id":"m"}},
		{"field":"live_comments","value":{"id":"c2","media_id":"m"}}
	]}]}`)

	events := newTestExtractor(WithCommentFields("live_comments", " ")).Extract(env)
	require.Len(t, events, 1)
	assert.Equal(t, "c2", events[0].CommentID)

	events = newTestExtractor(WithCommentFields()).Extract(env)
	require.Len(t, events, 1)
	assert.Equal(t, "c1", events[0].CommentID, "empty list keeps defaults")
}
