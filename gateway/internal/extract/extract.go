// Package extract pulls comment events out of a notification envelope.
//
// Extraction is tolerant: an entry or change that fails a shape check is
// skipped and its siblings are still processed.
package extract

import (
	"strings"
	"time"

	"github.com/telhawk-systems/hookgate/gateway/internal/models"
	"github.com/telhawk-systems/hookgate/gateway/internal/payload"
)

// DefaultCommentFields are the change fields that carry new comments.
var DefaultCommentFields = []string{"comments", "instagram_comments"}

// Extractor turns envelopes into comment events.
type Extractor struct {
	fields []string
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCommentFields replaces the recognized change field names. Matching is
// case-insensitive. An empty list keeps the defaults.
func WithCommentFields(fields ...string) Option {
	return func(e *Extractor) {
		cleaned := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				cleaned = append(cleaned, f)
			}
		}
		if len(cleaned) > 0 {
			e.fields = cleaned
		}
	}
}

// WithClock sets the time source used when an entry has no time.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		fields: DefaultCommentFields,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the comment events of env in payload order.
func (e *Extractor) Extract(env *payload.Envelope) []models.CommentEvent {
	if env == nil {
		return nil
	}

	var events []models.CommentEvent
	for _, entry := range env.Entries {
		changes, ok := validEntry(entry)
		if !ok {
			continue
		}

		eventTime := e.entryTime(entry)
		for _, change := range changes {
			value, ok := commentChange(change, e.fields)
			if !ok {
				continue
			}
			commentID, mediaID, ok := commentIdentifiers(value)
			if !ok {
				continue
			}
			events = append(events, models.CommentEvent{
				CommentID: commentID,
				MediaID:   mediaID,
				EventTime: eventTime,
			})
		}
	}
	return events
}

// entryTime is the entry's own time when numeric and non-zero, else now.
func (e *Extractor) entryTime(entry payload.Value) int64 {
	if ts, ok := entry.Get("time").AsInt64(); ok && ts != 0 {
		return ts
	}
	return e.now().Unix()
}

// validEntry requires a string id and a changes array.
func validEntry(entry payload.Value) ([]payload.Value, bool) {
	if _, ok := entry.Get("id").AsString(); !ok {
		return nil, false
	}
	return entry.Get("changes").AsArray()
}

// commentChange returns the change value when the field names a comment
// subscription and the value is an object.
func commentChange(change payload.Value, fields []string) (payload.Value, bool) {
	field, ok := change.Get("field").AsString()
	if !ok || !isCommentField(field, fields) {
		return payload.Value{}, false
	}
	value := change.Get("value")
	if !value.IsObject() {
		return payload.Value{}, false
	}
	return value, true
}

func isCommentField(field string, fields []string) bool {
	for _, f := range fields {
		if strings.EqualFold(field, f) {
			return true
		}
	}
	return false
}

// commentIdentifiers prefers comment_id over id for the comment and requires
// media_id. Both must be non-empty strings.
func commentIdentifiers(value payload.Value) (commentID, mediaID string, ok bool) {
	commentID, ok = value.Get("comment_id").AsString()
	if !ok {
		commentID, _ = value.Get("id").AsString()
	}
	mediaID, _ = value.Get("media_id").AsString()
	if commentID == "" || mediaID == "" {
		return "", "", false
	}
	return commentID, mediaID, true
}
