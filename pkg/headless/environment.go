// Package headless runs a captcha widget script in an in-process JavaScript
// runtime instead of a native web view. It implements [captcha.Transport] so
// widgets can be driven from tests, simulators and CI without a device.
package headless

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja"

	"github.com/go-drift/captcha/pkg/captcha"
	drifterrors "github.com/go-drift/captcha/pkg/errors"
	"github.com/go-drift/captcha/pkg/platform"
)

type job func(vm *goja.Runtime)

// Environment owns a goja runtime and a single goroutine that runs every
// script evaluation and message delivery in submission order.
type Environment struct {
	logger *slog.Logger
	// vm is only touched from the loop goroutine, except Interrupt.
	vm   *goja.Runtime
	wake chan struct{}
	done chan struct{}

	mu       sync.Mutex
	queue    []job                // guarded by mu
	listener func(map[string]any) // guarded by mu
	closed   bool                 // guarded by mu
}

// Option configures an Environment.
type Option func(*Environment)

// WithLogger sets the logger for swallowed script errors.
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// New starts an environment. The global object doubles as window, and
// window.captcha.postMessage accepts the same payloads the Android bridge
// does (a JSON string) as well as plain objects.
func New(opts ...Option) *Environment {
	e := &Environment{
		logger: slog.Default(),
		vm:     goja.New(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	global := e.vm.GlobalObject()
	global.Set("window", global)
	bridge := e.vm.NewObject()
	bridge.Set("postMessage", e.postMessage)
	global.Set(captcha.MessageHandlerName, bridge)

	go e.run()
	return e
}

func (e *Environment) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.mu.Unlock()
			<-e.wake
			e.mu.Lock()
		}
		if e.closed {
			e.queue = nil
			e.mu.Unlock()
			return
		}
		next := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.runJob(next)
	}
}

// runJob keeps a panicking listener from taking the loop down with it.
func (e *Environment) runJob(j job) {
	defer drifterrors.Recover("headless.run")
	j(e.vm)
}

// enqueue schedules j and reports false once the environment is closed.
func (e *Environment) enqueue(j job) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, j)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// postMessage is the script-facing binding. Delivery is queued behind the
// running script, like a browser message event.
func (e *Environment) postMessage(call goja.FunctionCall) goja.Value {
	body := call.Argument(0).Export()
	msg, ok := decodeMessage(body)
	if !ok {
		e.logger.Debug("headless: dropped malformed message", "body", body)
		return goja.Undefined()
	}
	e.enqueue(func(*goja.Runtime) {
		e.mu.Lock()
		fn := e.listener
		e.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	})
	return goja.Undefined()
}

func decodeMessage(body any) (map[string]any, bool) {
	if s, ok := body.(string); ok {
		decoded, err := platform.DefaultCodec.Decode([]byte(s))
		if err != nil {
			return nil, false
		}
		body = decoded
	}
	msg, ok := body.(map[string]any)
	return msg, ok
}

// Subscribe implements captcha.Transport.
func (e *Environment) Subscribe(fn func(msg map[string]any)) func() {
	e.mu.Lock()
	if !e.closed {
		e.listener = fn
	}
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			e.listener = nil
			e.mu.Unlock()
		})
	}
}

// Evaluate implements captcha.Transport. Script errors are logged at debug
// level; calls after Close are dropped.
func (e *Environment) Evaluate(script string) {
	e.enqueue(func(vm *goja.Runtime) {
		if _, err := vm.RunString(script); err != nil {
			e.logger.Debug("headless: script failed", "error", err)
		}
	})
}

// Load runs source and waits for it, returning its error. Messages the
// script posts are delivered after Load returns.
func (e *Environment) Load(ctx context.Context, source string) error {
	result := make(chan error, 1)
	if !e.enqueue(func(vm *goja.Runtime) {
		_, err := vm.RunString(source)
		result <- err
	}) {
		return captcha.ErrDestroyed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return captcha.ErrDestroyed
	}
}

// Flush waits until everything queued before the call, including messages
// those scripts posted, has run.
func (e *Environment) Flush(ctx context.Context) error {
	for {
		// The marker runs on the loop, so an empty queue at that point
		// means nothing else is pending or running.
		idle := make(chan bool, 1)
		if !e.enqueue(func(*goja.Runtime) {
			e.mu.Lock()
			idle <- len(e.queue) == 0
			e.mu.Unlock()
		}) {
			return captcha.ErrDestroyed
		}
		select {
		case ok := <-idle:
			if ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return captcha.ErrDestroyed
		}
	}
}

// Close stops the loop, interrupting a running script. Queued work is
// dropped. Close does not wait for the loop, so it is safe to call from a
// message handler.
func (e *Environment) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.listener = nil
	e.mu.Unlock()

	e.vm.Interrupt("headless: environment closed")
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the loop goroutine has exited after Close.
func (e *Environment) Done() <-chan struct{} {
	return e.done
}

// Boot loads script and the bootstrap that creates the widget for cfg,
// waiting for both to run. Messages the widget posts while booting are
// delivered afterwards, so handlers registered before Boot see them all.
func (e *Environment) Boot(ctx context.Context, cfg captcha.Config, script captcha.Script) error {
	bootstrap, err := captcha.BootstrapScript(cfg, script)
	if err != nil {
		return err
	}
	if err := e.Load(ctx, script.Source); err != nil {
		return fmt.Errorf("headless: load script: %w", err)
	}
	if err := e.Load(ctx, bootstrap); err != nil {
		return fmt.Errorf("headless: bootstrap: %w", err)
	}
	return nil
}

// Mount creates a widget bound to a new environment. Register handlers on
// the widget, then call Boot. Destroy on the widget closes the environment.
func Mount(cfg captcha.Config, script captcha.Script, opts ...captcha.Option) (*captcha.Widget, *Environment, error) {
	if err := script.Validate(); err != nil {
		return nil, nil, err
	}
	env := New()
	opts = append(opts, captcha.WithScript(script), captcha.WithTransport(env))
	w, err := captcha.New(cfg, opts...)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return w, env, nil
}
