package captcha

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/go-drift/captcha/pkg/platform"
)

// ParseReason classifies a [ParseError].
type ParseReason int

const (
	// ReasonInvalidMessage means the envelope had no string type or its
	// data could not be serialized.
	ReasonInvalidMessage ParseReason = iota + 1
	// ReasonDecodeFailed means data did not match the shape of a known tag.
	ReasonDecodeFailed
	// ReasonUnknownTag means the type tag is not one this package handles.
	ReasonUnknownTag
)

func (r ParseReason) String() string {
	switch r {
	case ReasonInvalidMessage:
		return "invalid_message"
	case ReasonDecodeFailed:
		return "decode_failed"
	case ReasonUnknownTag:
		return "unknown_tag"
	default:
		return "unknown"
	}
}

// Sentinel causes wrapped by ParseError.
var (
	ErrMissingType     = errors.New("message has no string type field")
	ErrUnserializable  = errors.New("message data is not serializable")
	ErrUnknownTag      = errors.New("unknown message type")
	ErrPayloadMismatch = errors.New("message data does not match type")
)

// ParseError describes an inbound message that could not be turned into an
// [Event]. It is what the handler registered with
// [Widget.OverrideParseError] receives.
type ParseError struct {
	Reason ParseReason
	// Tag is the message type tag, empty when it was missing.
	Tag string
	// Detail is the raw text of the underlying failure.
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("captcha: %s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("captcha: %s %q: %s", e.Reason, e.Tag, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(reason ParseReason, tag string, sentinel, cause error) *ParseError {
	detail := sentinel.Error()
	err := sentinel
	if cause != nil {
		detail = cause.Error()
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &ParseError{Reason: reason, Tag: tag, Detail: detail, Err: err}
}

// DecodeEvent turns an untyped script message of the form
// {"type": <tag>, "data": <payload>} into an Event. Failures are returned as
// *ParseError.
func DecodeEvent(msg map[string]any) (Event, error) {
	tag, ok := msg["type"].(string)
	if !ok {
		return nil, parseError(ReasonInvalidMessage, "", ErrMissingType, nil)
	}

	// Round-trip data through JSON so the schema sees the same value
	// whether it came from a JS runtime, a JSON string or a Go map.
	raw, err := platform.DefaultCodec.Encode(msg["data"])
	if err != nil {
		return nil, parseError(ReasonInvalidMessage, tag, ErrUnserializable, err)
	}
	data, err := platform.DefaultCodec.Decode(raw)
	if err != nil {
		return nil, parseError(ReasonInvalidMessage, tag, ErrUnserializable, err)
	}

	schema, ok := payloadSchemas[tag]
	if !ok {
		return nil, parseError(ReasonUnknownTag, tag, ErrUnknownTag, nil)
	}
	if err := schema.Validate(data); err != nil {
		return nil, parseError(ReasonDecodeFailed, tag, ErrPayloadMismatch, err)
	}

	var ev Event
	switch tag {
	case TagComplete:
		ev, err = decodePayload[CompleteEvent](data)
	case TagError:
		ev, err = decodePayload[ErrorEvent](data)
	case TagExpire:
		ev, err = decodePayload[ExpireEvent](data)
	case TagStateChange:
		ev, err = decodePayload[StateChangeEvent](data)
	}
	if err != nil {
		return nil, parseError(ReasonDecodeFailed, tag, ErrPayloadMismatch, err)
	}
	return ev, nil
}

func decodePayload[T Event](data any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "mapstructure",
	})
	if err != nil {
		return out, err
	}
	err = dec.Decode(data)
	return out, err
}
