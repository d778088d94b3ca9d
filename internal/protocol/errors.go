package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindInvalidVersion      Kind = "InvalidVersion"
	KindUnknownMessageType  Kind = "UnknownMessageType"
	KindUnexpectedStart     Kind = "UnexpectedStart"
	KindExpectedStart       Kind = "ExpectedStart"
	KindMissingAttribute    Kind = "MissingAttribute"
	KindUnexpectedAttribute Kind = "UnexpectedAttribute"
	KindUnsupported         Kind = "Unsupported"
	KindMalformedXML        Kind = "MalformedXML"
	KindMalformedURI        Kind = "MalformedURI"
	KindPayload             Kind = "Payload"
)

// Layer separates envelope failures (version or transport mismatch) from
// failures inside the payload (application protocol violations).
type Layer string

const (
	LayerEnvelope Layer = "envelope"
	LayerPayload  Layer = "payload"
)

// Error is the codec's single error type.
//
// Name carries the offending value: the version or type string, the tag
// name, the attribute key, or the expected tag set for KindExpectedStart.
// Cause is the lower-level error for the wrapping kinds.
type Error struct {
	Kind  Kind
	Layer Layer
	Name  string
	Cause error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrInvalidVersion      = &Error{Kind: KindInvalidVersion}
	ErrUnknownMessageType  = &Error{Kind: KindUnknownMessageType}
	ErrUnexpectedStart     = &Error{Kind: KindUnexpectedStart}
	ErrExpectedStart       = &Error{Kind: KindExpectedStart}
	ErrMissingAttribute    = &Error{Kind: KindMissingAttribute}
	ErrUnexpectedAttribute = &Error{Kind: KindUnexpectedAttribute}
	ErrUnsupported         = &Error{Kind: KindUnsupported}
	ErrMalformedXML        = &Error{Kind: KindMalformedXML}
	ErrMalformedURI        = &Error{Kind: KindMalformedURI}
	ErrPayload             = &Error{Kind: KindPayload}
)

var ErrNilMessage = errors.New("protocol: nil message")

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindInvalidVersion:
		return fmt.Sprintf("protocol: invalid version %q", e.Name)
	case KindUnknownMessageType:
		return fmt.Sprintf("protocol: unknown message type %q", e.Name)
	case KindUnexpectedStart:
		return fmt.Sprintf("protocol: unexpected start tag <%s>", e.Name)
	case KindExpectedStart:
		return fmt.Sprintf("protocol: expected start tag: %s", e.Name)
	case KindMissingAttribute:
		return fmt.Sprintf("protocol: %s: missing attribute %q", e.Layer, e.Name)
	case KindUnexpectedAttribute:
		return fmt.Sprintf("protocol: %s: unexpected attribute %q", e.Layer, e.Name)
	case KindUnsupported:
		return fmt.Sprintf("protocol: unsupported element <%s>", e.Name)
	case KindMalformedXML:
		return fmt.Sprintf("protocol: %s: malformed xml: %v", e.Layer, e.Cause)
	case KindMalformedURI:
		return fmt.Sprintf("protocol: malformed uri: %v", e.Cause)
	default:
		return fmt.Sprintf("protocol: invalid payload: %v", e.Cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinels by Kind, so errors.Is(err, ErrInvalidVersion) holds for
// any invalid version.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return (t.Layer == "" || t.Layer == e.Layer) && (t.Name == "" || t.Name == e.Name)
}

// KindOf returns the Kind of a codec error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// LayerOf returns the Layer of a codec error, or "" for anything else.
func LayerOf(err error) Layer {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Layer
}

// IsEnvelope reports whether err is a codec error raised outside any payload.
func IsEnvelope(err error) bool {
	return LayerOf(err) == LayerEnvelope
}

// classify turns a lower-level error into an *Error attributed to layer.
// Errors that are already classified pass through untouched.
func classify(layer Layer, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	var (
		missing    xmlio.MissingAttributeError
		unexpected xmlio.UnexpectedAttributeError
		read       xmlio.ReadError
		uri        rsync.Error
	)
	switch {
	case errors.As(err, &missing):
		return &Error{Kind: KindMissingAttribute, Layer: layer, Name: missing.Key, Cause: err}
	case errors.As(err, &unexpected):
		return &Error{Kind: KindUnexpectedAttribute, Layer: layer, Name: unexpected.Key, Cause: err}
	case errors.As(err, &read):
		return &Error{Kind: KindMalformedXML, Layer: layer, Cause: err}
	case errors.As(err, &uri):
		return &Error{Kind: KindMalformedURI, Layer: layer, Name: uri.URI, Cause: err}
	default:
		return &Error{Kind: KindPayload, Layer: layer, Cause: err}
	}
}
