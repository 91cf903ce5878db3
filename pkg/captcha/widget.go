package captcha

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	drifterrors "github.com/go-drift/captcha/pkg/errors"
)

// ErrDestroyed is returned by HandleMessage after Destroy.
var ErrDestroyed = errors.New("captcha: widget destroyed")

// Widget controls one embedded captcha widget and mirrors its state.
//
// All methods are safe for concurrent use. Message handling and Destroy are
// serialized, so handlers never run concurrently with each other or with
// Destroy.
type Widget struct {
	config   Config
	script   Script
	logger   *slog.Logger
	metrics  *Metrics
	policy   DecodePolicy
	mirror   *mirror
	handlers *handlerRegistry

	// deliverMu serializes message delivery and Destroy.
	deliverMu   sync.Mutex
	destroyed   atomic.Bool
	transport   Transport
	unsubscribe func()
	cleanup     runtime.Cleanup
}

// teardown is what the garbage-collection cleanup needs; it must not
// reference the Widget.
type teardown struct {
	unsubscribe func()
	transport   Transport
}

// New validates cfg, creates the transport (a native web view unless
// WithTransport is given) and subscribes to it. The mirrored state starts
// as StateInit with an empty response.
func New(cfg Config, opts ...Option) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	// A custom transport may load the script itself.
	if o.transport == nil || o.script != (Script{}) {
		if err := o.script.Validate(); err != nil {
			return nil, err
		}
	}

	transport := o.transport
	if transport == nil {
		t, err := NewWebViewTransport(cfg, o.script, o.logger)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	w := &Widget{
		config:    cfg.WithDefaults(),
		script:    o.script.withDefaults(),
		logger:    o.logger,
		metrics:   o.metrics,
		policy:    o.policy,
		mirror:    newMirror(),
		handlers:  newHandlerRegistry(),
		transport: transport,
	}

	// The transport holds the subscription, so it may only reach the
	// widget weakly or the cleanup below could never run.
	wp := weak.Make(w)
	w.unsubscribe = transport.Subscribe(func(msg map[string]any) {
		if w := wp.Value(); w != nil {
			w.HandleMessage(msg)
		}
	})
	w.cleanup = runtime.AddCleanup(w, func(td teardown) {
		td.unsubscribe()
		td.transport.Close()
	}, teardown{unsubscribe: w.unsubscribe, transport: transport})

	return w, nil
}

// Config returns the configuration the widget was created with, with
// defaults applied.
func (w *Widget) Config() Config {
	return w.config
}

// OnComplete replaces the handler for solved challenges.
func (w *Widget) OnComplete(fn func(CompleteEvent)) {
	w.handlers.update(func(s *handlerSet) { s.onComplete = fn })
}

// OnError replaces the handler for widget errors.
func (w *Widget) OnError(fn func(ErrorEvent)) {
	w.handlers.update(func(s *handlerSet) { s.onError = fn })
}

// OnExpire replaces the handler for expired responses.
func (w *Widget) OnExpire(fn func(ExpireEvent)) {
	w.handlers.update(func(s *handlerSet) { s.onExpire = fn })
}

// OnStateChange replaces the handler called on every state change,
// including changes also reported to OnComplete, OnError and OnExpire.
// The mirror is updated before the handler runs regardless of which handler
// is installed.
func (w *Widget) OnStateChange(fn func(StateChangeEvent)) {
	w.handlers.update(func(s *handlerSet) { s.onStateChange = fn })
}

// OverrideParseError installs fn as the receiver of messages that could not
// be decoded. Passing nil restores the default: unknown tags and malformed
// envelopes are reported to the global error handler, and known tags with
// malformed data follow the DecodePolicy.
func (w *Widget) OverrideParseError(fn func(*ParseError)) {
	w.handlers.update(func(s *handlerSet) { s.onParseError = fn })
}

// State returns the last mirrored widget state.
func (w *Widget) State() WidgetState {
	return w.mirror.snapshot().State
}

// Response returns the last mirrored response token.
func (w *Widget) Response() string {
	return w.mirror.snapshot().Response
}

// ID returns the last mirrored widget identifier.
func (w *Widget) ID() string {
	return w.mirror.snapshot().ID
}

// Snapshot returns state, response and identifier read together.
func (w *Widget) Snapshot() Snapshot {
	return w.mirror.snapshot()
}

// Destroyed reports whether Destroy has been called.
func (w *Widget) Destroyed() bool {
	return w.destroyed.Load()
}

// Surface returns the platform view to attach to the host view hierarchy,
// or nil if the transport has none.
func (w *Widget) Surface() Surface {
	s, _ := w.transport.(Surface)
	return s
}

// Start asks the widget to begin solving. It does not wait and reports
// nothing; after Destroy it does nothing.
func (w *Widget) Start() {
	w.command("start")
}

// Reset asks the widget to discard its progress. Same delivery semantics as
// Start.
func (w *Widget) Reset() {
	w.command("reset")
}

func (w *Widget) command(method string) {
	if w.destroyed.Load() {
		return
	}
	w.logger.Debug("captcha command", "command", method, "sitekey", w.config.SiteKey)
	w.transport.Evaluate(w.script.command(method))
}

// HandleMessage decodes one inbound script message and applies it. It is
// the function subscribed to the transport; transports and tests may also
// call it directly. The returned error has already been routed (to the
// parse-error handler or the global error handler) and is informational.
func (w *Widget) HandleMessage(msg map[string]any) error {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if w.destroyed.Load() {
		return ErrDestroyed
	}

	ev, err := DecodeEvent(msg)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			return err
		}
		w.metrics.message(pe.Tag)
		w.parseFailure(pe)
		return pe
	}
	w.metrics.message(ev.Tag())
	w.deliver(ev)
	return nil
}

func (w *Widget) parseFailure(pe *ParseError) {
	w.metrics.parseFailure(pe.Reason)

	if fn := w.handlers.load().onParseError; fn != nil {
		w.invoke("captcha.OverrideParseError", func() { fn(pe) })
		return
	}

	switch pe.Reason {
	case ReasonUnknownTag:
		drifterrors.Report(&drifterrors.CaptchaError{
			Op:   "captcha.HandleMessage",
			Kind: drifterrors.KindUnknownTag,
			Tag:  pe.Tag,
			Err:  pe,
		})
	case ReasonDecodeFailed:
		if w.policy == PolicyPanic {
			panic(fmt.Errorf("captcha: unhandled decode failure: %w", pe))
		}
		fallthrough
	default:
		drifterrors.Report(&drifterrors.CaptchaError{
			Op:   "captcha.HandleMessage",
			Kind: drifterrors.KindParsing,
			Tag:  pe.Tag,
			Err:  pe,
		})
	}
}

func (w *Widget) deliver(ev Event) {
	hs := w.handlers.load()
	switch e := ev.(type) {
	case StateChangeEvent:
		if !w.mirror.apply(e) {
			return
		}
		w.metrics.state(e.State)
		if fn := hs.onStateChange; fn != nil {
			w.invoke("captcha.OnStateChange", func() { fn(e) })
		}
	case CompleteEvent:
		if fn := hs.onComplete; fn != nil {
			w.invoke("captcha.OnComplete", func() { fn(e) })
		}
	case ErrorEvent:
		if fn := hs.onError; fn != nil {
			w.invoke("captcha.OnError", func() { fn(e) })
		}
	case ExpireEvent:
		if fn := hs.onExpire; fn != nil {
			w.invoke("captcha.OnExpire", func() { fn(e) })
		}
	}
}

// invoke runs a user handler, reporting a panic instead of unwinding the
// delivery goroutine.
func (w *Widget) invoke(op string, fn func()) {
	defer drifterrors.Recover(op)
	fn()
}

// Destroy tears the widget down. In order it stops inbound delivery, forces
// the mirror to StateDestroyed with ResponseDestroyed, reports that state to
// the state-change handler once, clears every handler and releases the
// transport. It is synchronous and idempotent; no handler runs after it
// returns. Start and Reset become no-ops.
func (w *Widget) Destroy() {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if !w.destroyed.CompareAndSwap(false, true) {
		return
	}
	w.cleanup.Stop()

	w.unsubscribe()

	snap := w.mirror.destroy()
	w.metrics.state(snap.State)
	if fn := w.handlers.load().onStateChange; fn != nil {
		ev := StateChangeEvent{State: snap.State, Response: snap.Response, ID: snap.ID}
		w.invoke("captcha.OnStateChange", func() { fn(ev) })
	}

	w.handlers.clear()
	w.transport.Close()
	w.logger.Debug("captcha widget destroyed", "sitekey", w.config.SiteKey, "id", snap.ID)
}
