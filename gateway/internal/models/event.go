package models

import "time"

// CommentEvent is one new comment extracted from a notification. Its JSON
// form is the job record handed to downstream workers.
type CommentEvent struct {
	CommentID string `json:"commentId"`
	MediaID   string `json:"mediaId"`
	EventTime int64  `json:"eventTime"`
}

// Time returns EventTime as a time.Time in UTC.
func (e CommentEvent) Time() time.Time {
	return time.Unix(e.EventTime, 0).UTC()
}

// ReceivedResponse acknowledges a notification.
type ReceivedResponse struct {
	Received bool `json:"received"`
}

// Error messages returned to webhook callers.
const (
	ErrTextMalformedJSON    = "Malformed JSON"
	ErrTextInvalidSignature = "Invalid signature"
	ErrTextInternal         = "Internal server error"
	ErrTextTooManyRequests  = "Too many requests"
	ErrTextMethodNotAllowed = "Method not allowed"
)

// PipelineStats summarizes what the gateway did since start.
type PipelineStats struct {
	Notifications    int64     `json:"notifications"`
	EventsExtracted  int64     `json:"events_extracted"`
	EventsEnqueued   int64     `json:"events_enqueued"`
	EventsDuplicate  int64     `json:"events_duplicate"`
	SignatureFailure int64     `json:"signature_failures"`
	StartedAt        time.Time `json:"started_at"`
}
