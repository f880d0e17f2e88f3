package logging

import "log/slog"

// Field names shared by every hookgate log line.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldType      = "type"
	FieldIP        = "ip"
	FieldError     = "error"
	FieldProvider  = "provider"
	FieldCommentID = "comment_id"
	FieldMediaID   = "media_id"
	FieldEventTime = "event_time"
)

func Service(name string) slog.Attr { return slog.String(FieldService, name) }

func RequestID(id string) slog.Attr { return slog.String(FieldRequestID, id) }

// Type tags a log line with a stable event type so alerts can match on it.
func Type(t string) slog.Attr { return slog.String(FieldType, t) }

func IP(ip string) slog.Attr { return slog.String(FieldIP, ip) }

// Error returns an error attribute. A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

func Provider(name string) slog.Attr { return slog.String(FieldProvider, name) }

func CommentID(id string) slog.Attr { return slog.String(FieldCommentID, id) }

func MediaID(id string) slog.Attr { return slog.String(FieldMediaID, id) }

func EventTime(unix int64) slog.Attr { return slog.Int64(FieldEventTime, unix) }
