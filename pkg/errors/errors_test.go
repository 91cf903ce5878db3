package errors

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestCaptchaErrorString(t *testing.T) {
	err := &CaptchaError{
		Op:   "test.operation",
		Kind: KindPlatform,
		Err:  &ParseError{Channel: "test", DataType: "TestData", Got: "invalid"},
	}
	got := err.Error()
	if got == "" {
		t.Error("expected non-empty error string")
	}
}

func TestCaptchaErrorWithChannel(t *testing.T) {
	err := &CaptchaError{
		Op:      "test.operation",
		Kind:    KindParsing,
		Channel: "drift/test/channel",
		Err:     &ParseError{Channel: "drift/test/channel", DataType: "TestData", Got: nil},
	}
	want := "channel=drift/test/channel"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
}

func TestCaptchaErrorWithTag(t *testing.T) {
	err := &CaptchaError{
		Op:   "captcha.HandleMessage",
		Kind: KindUnknownTag,
		Tag:  "bogus",
		Err:  stderrors.New("unknown message type"),
	}
	want := "captcha.HandleMessage [unknown_tag] tag=bogus: unknown message type"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCaptchaErrorUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := &CaptchaError{Op: "op", Err: sentinel}
	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindUnknownTag, "unknown_tag"},
		{KindConfig, "config"},
		{KindTransport, "transport"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}

	err.Op = "captcha.deliver"
	if got, want := err.Error(), "panic in captcha.deliver: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *CaptchaError
	handler := &testHandler{
		onError: func(err *CaptchaError) {
			captured = err
		},
	}

	defer SetHandler(SetHandler(handler))

	Report(&CaptchaError{
		Op:   "test.op",
		Kind: KindConfig,
		Err:  stderrors.New("bad config"),
	})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportNil(t *testing.T) {
	called := false
	defer SetHandler(SetHandler(&testHandler{onError: func(*CaptchaError) { called = true }}))

	Report(nil)
	ReportPanic(nil)
	if called {
		t.Error("nil reports must not reach the handler")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	defer SetHandler(SetHandler(&testHandler{onPanic: func(err *PanicError) { captured = err }}))

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	called := false
	defer SetHandler(SetHandler(&testHandler{onPanic: func(*PanicError) { called = true }}))

	func() {
		defer Recover("test.calm")
	}()
	if called {
		t.Error("Recover reported without a panic")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	custom := &testHandler{}
	prev := SetHandler(custom)
	defer SetHandler(prev)

	if got := SetHandler(nil); got != custom {
		t.Errorf("SetHandler(nil) returned %T, want the custom handler", got)
	}
	if _, ok := Handler().(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should install LogHandler, got %T", Handler())
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	h.HandleError(&CaptchaError{
		Op:   "captcha.HandleMessage",
		Kind: KindUnknownTag,
		Tag:  "bogus",
		Err:  stderrors.New("unknown message type"),
	})
	out := buf.String()
	for _, want := range []string{"level=WARN", "op=captcha.HandleMessage", "kind=unknown_tag", "tag=bogus"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}

	buf.Reset()
	h.HandlePanic(&PanicError{Op: "captcha.deliver", Value: "boom"})
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "value=boom") {
		t.Errorf("unexpected panic log output %q", out)
	}
}

type testHandler struct {
	onError func(*CaptchaError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *CaptchaError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
