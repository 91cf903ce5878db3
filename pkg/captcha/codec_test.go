package captcha_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/captcha/pkg/captcha"
)

func TestDecodeEvent_KnownTags(t *testing.T) {
	tests := []struct {
		name string
		msg  map[string]any
		want captcha.Event
	}{
		{
			name: "complete",
			msg:  map[string]any{"type": "complete", "data": map[string]any{"response": "tok", "id": "w1"}},
			want: captcha.CompleteEvent{Response: "tok", ID: "w1"},
		},
		{
			name: "error",
			msg: map[string]any{"type": "error", "data": map[string]any{
				"error": map[string]any{"code": "timeout", "detail": "took too long"},
				"id":    "w1",
			}},
			want: captcha.ErrorEvent{Error: captcha.WidgetError{Code: "timeout", Detail: "took too long"}, ID: "w1"},
		},
		{
			name: "expire",
			msg:  map[string]any{"type": "expire", "data": map[string]any{"id": "w1"}},
			want: captcha.ExpireEvent{ID: "w1"},
		},
		{
			name: "statechange with null error",
			msg: map[string]any{"type": "statechange", "data": map[string]any{
				"state": "requesting", "response": ".REQUESTING", "id": "w1", "error": nil,
			}},
			want: captcha.StateChangeEvent{State: captcha.StateRequesting, Response: ".REQUESTING", ID: "w1"},
		},
		{
			name: "extra fields are ignored",
			msg: map[string]any{"type": "expire", "data": map[string]any{
				"id": "w1", "since": 1234,
			}},
			want: captcha.ExpireEvent{ID: "w1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := captcha.DecodeEvent(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
			assert.Equal(t, tt.msg["type"], ev.Tag())
			assert.Equal(t, "w1", ev.WidgetID())
		})
	}
}

func TestDecodeEvent_Failures(t *testing.T) {
	tests := []struct {
		name   string
		msg    map[string]any
		reason captcha.ParseReason
		tag    string
		cause  error
	}{
		{
			name:   "missing type",
			msg:    map[string]any{"data": map[string]any{"id": "w1"}},
			reason: captcha.ReasonInvalidMessage,
			cause:  captcha.ErrMissingType,
		},
		{
			name:   "non-string type",
			msg:    map[string]any{"type": 7, "data": map[string]any{"id": "w1"}},
			reason: captcha.ReasonInvalidMessage,
			cause:  captcha.ErrMissingType,
		},
		{
			name:   "unserializable data",
			msg:    map[string]any{"type": "expire", "data": map[string]any{"id": make(chan int)}},
			reason: captcha.ReasonInvalidMessage,
			tag:    "expire",
			cause:  captcha.ErrUnserializable,
		},
		{
			name:   "unknown tag",
			msg:    map[string]any{"type": "bogus", "data": map[string]any{}},
			reason: captcha.ReasonUnknownTag,
			tag:    "bogus",
			cause:  captcha.ErrUnknownTag,
		},
		{
			name:   "missing required field",
			msg:    map[string]any{"type": "complete", "data": map[string]any{"response": "tok"}},
			reason: captcha.ReasonDecodeFailed,
			tag:    "complete",
			cause:  captcha.ErrPayloadMismatch,
		},
		{
			name:   "wrong field type",
			msg:    map[string]any{"type": "expire", "data": map[string]any{"id": 12}},
			reason: captcha.ReasonDecodeFailed,
			tag:    "expire",
			cause:  captcha.ErrPayloadMismatch,
		},
		{
			name:   "data is not an object",
			msg:    map[string]any{"type": "statechange", "data": "solving"},
			reason: captcha.ReasonDecodeFailed,
			tag:    "statechange",
			cause:  captcha.ErrPayloadMismatch,
		},
		{
			name: "empty state",
			msg: map[string]any{"type": "statechange", "data": map[string]any{
				"state": "", "response": "", "id": "w1",
			}},
			reason: captcha.ReasonDecodeFailed,
			tag:    "statechange",
			cause:  captcha.ErrPayloadMismatch,
		},
		{
			name: "error object of wrong type",
			msg: map[string]any{"type": "error", "data": map[string]any{
				"error": "boom", "id": "w1",
			}},
			reason: captcha.ReasonDecodeFailed,
			tag:    "error",
			cause:  captcha.ErrPayloadMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := captcha.DecodeEvent(tt.msg)
			assert.Nil(t, ev)

			var pe *captcha.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.reason, pe.Reason)
			assert.Equal(t, tt.tag, pe.Tag)
			assert.NotEmpty(t, pe.Detail)
			assert.NotContains(t, pe.Detail, "file://")
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestParseReason_String(t *testing.T) {
	assert.Equal(t, "invalid_message", captcha.ReasonInvalidMessage.String())
	assert.Equal(t, "decode_failed", captcha.ReasonDecodeFailed.String())
	assert.Equal(t, "unknown_tag", captcha.ReasonUnknownTag.String())
	assert.Equal(t, "unknown", captcha.ParseReason(0).String())
}

func TestParseError_Message(t *testing.T) {
	_, err := captcha.DecodeEvent(map[string]any{"type": "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown_tag "bogus"`)

	_, err = captcha.DecodeEvent(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_message")
}

func TestWidgetError_Error(t *testing.T) {
	assert.Equal(t, "captcha widget error timeout", captcha.WidgetError{Code: "timeout"}.Error())
	assert.Equal(t, "captcha widget error timeout: slow", captcha.WidgetError{Code: "timeout", Detail: "slow"}.Error())
}

func TestDecodeEvent_SchemaErrorNamesSchemaID(t *testing.T) {
	_, err := captcha.DecodeEvent(map[string]any{"type": "expire", "data": map[string]any{}})

	var pe *captcha.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Detail, "https://go-drift.dev/captcha/expire.json")
	assert.NotContains(t, pe.Detail, "file://")
}
