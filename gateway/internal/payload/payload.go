// Package payload turns a raw webhook body into a notification envelope.
//
// Parsing separates two failure classes. Bytes that are not JSON are
// malformed and rejected. JSON without an "entry" array is a notification
// shape the gateway does not act on; callers acknowledge it so the platform
// does not keep redelivering.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrUnrecognizedShape = errors.New("unrecognized payload shape")
)

// Envelope is the top level of a change notification.
type Envelope struct {
	// Object names the subscribed object type, e.g. "instagram". It is
	// empty when the payload omits it.
	Object string

	// Entries are kept as raw values; each is validated during extraction
	// so one bad entry cannot fail the whole delivery.
	Entries []Value
}

// Parse decodes body strictly and checks the envelope shape.
func Parse(body []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrMalformedPayload)
	}

	root := NewValue(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level %s, want object", ErrUnrecognizedShape, root.Kind())
	}
	entries, ok := root.Get("entry").AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: missing entry array", ErrUnrecognizedShape)
	}

	object, _ := root.Get("object").AsString()
	return &Envelope{Object: object, Entries: entries}, nil
}
