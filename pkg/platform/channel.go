package platform

import (
	"slices"
	"sync"
	"sync/atomic"
)

// MethodHandler answers a method call native makes on a channel.
type MethodHandler func(method string, args any) (any, error)

// MethodChannel carries method calls in both directions. The captcha bridge
// uses one to create, drive and dispose its web views.
type MethodChannel struct {
	name    string
	handler atomic.Pointer[MethodHandler]
}

// NewMethodChannel creates and registers a method channel.
func NewMethodChannel(name string) *MethodChannel {
	ch := &MethodChannel{name: name}
	registry.addMethod(ch)
	return ch
}

// Name returns the channel name.
func (c *MethodChannel) Name() string {
	return c.name
}

// SetHandler installs the handler for calls from native. nil removes it.
func (c *MethodChannel) SetHandler(handler MethodHandler) {
	if handler == nil {
		c.handler.Store(nil)
		return
	}
	c.handler.Store(&handler)
}

// Invoke calls method on the native side and blocks for its result.
func (c *MethodChannel) Invoke(method string, args any) (any, error) {
	return invokeNative(c.name, method, args)
}

func (c *MethodChannel) handleCall(method string, args any) (any, error) {
	h := c.handler.Load()
	if h == nil {
		return nil, ErrMethodNotFound
	}
	return (*h)(method, args)
}

// EventHandler receives what native sends on an [EventChannel]. Nil
// fields are skipped.
type EventHandler struct {
	OnEvent func(data any)
	OnError func(err error)
	OnDone  func()
}

// Subscription is one listener on an [EventChannel].
type Subscription struct {
	channel  *EventChannel
	handler  EventHandler
	canceled atomic.Bool
}

// Cancel detaches the listener. The native stream stops with the last
// listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.channel.remove(s)
	}
}

// IsCanceled reports whether the listener was canceled or its stream ended.
func (s *Subscription) IsCanceled() bool {
	return s.canceled.Load()
}

// EventChannel receives a stream of events from native. The native side is
// asked to stream while the channel has listeners and a bridge is installed.
type EventChannel struct {
	name string
	// subs is replaced on every change, never mutated, so delivery reads
	// it without locking.
	subs atomic.Pointer[[]*Subscription]

	mu      sync.Mutex // serializes listener changes with stream start/stop
	started bool       // guarded by mu
}

// NewEventChannel creates and registers an event channel.
func NewEventChannel(name string) *EventChannel {
	ch := &EventChannel{name: name}
	registry.addEvent(ch)
	return ch
}

// Name returns the channel name.
func (c *EventChannel) Name() string {
	return c.name
}

func (c *EventChannel) listeners() []*Subscription {
	if p := c.subs.Load(); p != nil {
		return *p
	}
	return nil
}

// Listen adds a listener. If the native stream cannot be started the error
// goes to handler.OnError; the listener stays and the stream is retried when
// the next bridge is installed.
func (c *EventChannel) Listen(handler EventHandler) *Subscription {
	sub := &Subscription{channel: c, handler: handler}
	c.mu.Lock()
	next := append(slices.Clone(c.listeners()), sub)
	c.subs.Store(&next)
	c.mu.Unlock()

	if err := c.ensureStarted(); err != nil && handler.OnError != nil {
		handler.OnError(err)
	}
	return sub
}

// ensureStarted asks native to stream if the channel has listeners, a
// bridge is installed and the stream is not already running.
func (c *EventChannel) ensureStarted() error {
	c.mu.Lock()
	start := !c.started && len(c.listeners()) > 0 && currentBridge() != nil
	if start {
		c.started = true
	}
	c.mu.Unlock()
	if !start {
		return nil
	}

	err := startEventStream(c.name)
	if err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
	}
	return err
}

func (c *EventChannel) remove(sub *Subscription) {
	c.mu.Lock()
	next := slices.DeleteFunc(slices.Clone(c.listeners()), func(s *Subscription) bool {
		return s == sub
	})
	c.subs.Store(&next)
	stop := len(next) == 0 && c.started
	if stop {
		c.started = false
	}
	c.mu.Unlock()

	// stopEventStream reports its own failures.
	if stop {
		stopEventStream(c.name)
	}
}

func (c *EventChannel) deliverEvent(data any) {
	for _, s := range c.listeners() {
		if fn := s.handler.OnEvent; fn != nil && !s.IsCanceled() {
			fn(data)
		}
	}
}

func (c *EventChannel) deliverError(err error) {
	for _, s := range c.listeners() {
		if fn := s.handler.OnError; fn != nil && !s.IsCanceled() {
			fn(err)
		}
	}
}

// finish ends the stream: every listener is canceled, then told it is done.
func (c *EventChannel) finish() {
	c.mu.Lock()
	subs := c.listeners()
	c.subs.Store(nil)
	c.started = false
	c.mu.Unlock()

	for _, s := range subs {
		s.canceled.Store(true)
		if fn := s.handler.OnDone; fn != nil {
			fn()
		}
	}
}

// reset drops every listener without notifying it.
func (c *EventChannel) reset() {
	c.mu.Lock()
	c.subs.Store(nil)
	c.started = false
	c.mu.Unlock()
}
