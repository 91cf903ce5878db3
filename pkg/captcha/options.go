package captcha

import "log/slog"

// DecodePolicy decides what happens when a message with a known tag fails to
// decode and no parse-error handler is registered.
type DecodePolicy int

const (
	// PolicyReport sends the failure to the global error handler and drops
	// the message.
	PolicyReport DecodePolicy = iota
	// PolicyPanic panics on the delivery goroutine, ending the process
	// unless the transport recovers it.
	PolicyPanic
)

// Option configures a Widget.
type Option func(*options)

type options struct {
	transport Transport
	script    Script
	logger    *slog.Logger
	metrics   *Metrics
	policy    DecodePolicy
}

// WithTransport uses t instead of a native web view.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithScript sets the widget script. Required when the web view transport
// is used, since the page inlines the script source.
func WithScript(s Script) Option {
	return func(o *options) { o.script = s }
}

// WithLogger sets the logger for command and transport diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records bridge traffic in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDecodePolicy sets the fallback for decode failures.
func WithDecodePolicy(p DecodePolicy) Option {
	return func(o *options) { o.policy = p }
}
