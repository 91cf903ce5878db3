package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/captcha/pkg/errors"
)

// NativeBridge is implemented by the host (Android, iOS) to carry channel
// traffic from Go to native code. Traffic in the other direction enters
// through [HandleMethodCall] and the HandleEvent functions.
type NativeBridge interface {
	// InvokeMethod calls method on the named channel and returns the
	// encoded result.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)

	// StartEventStream asks native to begin sending events on channel.
	StartEventStream(channel string) error

	// StopEventStream asks native to stop sending events on channel.
	StopEventStream(channel string) error
}

// channels indexes every channel by name. Method and event channels live in
// separate namespaces, so one name can carry both, as platform views do.
type channels struct {
	mu      sync.RWMutex
	methods map[string]*MethodChannel
	events  map[string]*EventChannel
}

var registry = &channels{
	methods: make(map[string]*MethodChannel),
	events:  make(map[string]*EventChannel),
}

func (r *channels) addMethod(ch *MethodChannel) {
	r.mu.Lock()
	r.methods[ch.name] = ch
	r.mu.Unlock()
}

func (r *channels) addEvent(ch *EventChannel) {
	r.mu.Lock()
	r.events[ch.name] = ch
	r.mu.Unlock()
}

func (r *channels) method(name string) *MethodChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.methods[name]
}

func (r *channels) event(name string) *EventChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.events[name]
}

func (r *channels) allEvents() []*EventChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EventChannel, 0, len(r.events))
	for _, ch := range r.events {
		out = append(out, ch)
	}
	return out
}

var (
	bridgeMu     sync.RWMutex
	nativeBridge NativeBridge
)

func currentBridge() NativeBridge {
	bridgeMu.RLock()
	defer bridgeMu.RUnlock()
	return nativeBridge
}

// SetNativeBridge installs the host bridge, or removes it when nil.
// Event channels that gained listeners before a bridge existed (the
// platform view listener is added at init) start streaming now; a failure
// is delivered to that channel's OnError handlers.
func SetNativeBridge(bridge NativeBridge) {
	bridgeMu.Lock()
	nativeBridge = bridge
	bridgeMu.Unlock()
	if bridge == nil {
		return
	}

	for _, ch := range registry.allEvents() {
		if err := ch.ensureStarted(); err != nil {
			ch.deliverError(err)
		}
	}
}

// builtinInits re-adds the listeners the package installs at init.
// ResetForTest replays them after dropping all listeners.
var builtinInits []func()

func registerBuiltinInit(fn func()) {
	builtinInits = append(builtinInits, fn)
	fn()
}

func invokeNative(channel, method string, args any) (any, error) {
	bridge := currentBridge()
	if bridge == nil {
		return nil, ErrPlatformUnavailable
	}
	in, err := DefaultCodec.Encode(args)
	if err != nil {
		return nil, err
	}
	out, err := bridge.InvokeMethod(channel, method, in)
	if err != nil {
		return nil, err
	}
	return DefaultCodec.Decode(out)
}

func startEventStream(channel string) error {
	return streamControl("platform.startEventStream", channel, NativeBridge.StartEventStream)
}

func stopEventStream(channel string) error {
	return streamControl("platform.stopEventStream", channel, NativeBridge.StopEventStream)
}

// streamControl runs a start or stop request and reports its failure.
func streamControl(op, channel string, call func(NativeBridge, string) error) error {
	err := ErrPlatformUnavailable
	if bridge := currentBridge(); bridge != nil {
		err = call(bridge, channel)
	}
	if err != nil {
		errors.Report(&errors.CaptchaError{
			Op:      op,
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     err,
		})
	}
	return err
}

// HandleMethodCall is called by the host when native invokes a Go method.
func HandleMethodCall(channel, method string, argsData []byte) ([]byte, error) {
	ch := registry.method(channel)
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	args, err := DefaultCodec.Decode(argsData)
	if err != nil {
		return nil, err
	}
	result, err := ch.handleCall(method, args)
	if err != nil {
		return nil, err
	}
	return DefaultCodec.Encode(result)
}

// ErrChannelNotRegistered is returned when native sends on an event channel
// Go never created.
var ErrChannelNotRegistered = fmt.Errorf("event channel not registered")

func eventChannel(op, channel string) (*EventChannel, error) {
	if ch := registry.event(channel); ch != nil {
		return ch, nil
	}
	err := fmt.Errorf("%w: %s", ErrChannelNotRegistered, channel)
	errors.Report(&errors.CaptchaError{
		Op:      op,
		Kind:    errors.KindPlatform,
		Channel: channel,
		Err:     err,
	})
	return nil, err
}

// HandleEvent is called by the host when native sends an event. Data that
// does not decode is delivered to the channel's OnError handlers.
func HandleEvent(channel string, eventData []byte) error {
	ch, err := eventChannel("platform.HandleEvent", channel)
	if err != nil {
		return err
	}
	data, err := DefaultCodec.Decode(eventData)
	if err != nil {
		ch.deliverError(err)
		return err
	}
	ch.deliverEvent(data)
	return nil
}

// HandleEventError is called by the host when a native stream fails.
func HandleEventError(channel string, code, message string) error {
	ch, err := eventChannel("platform.HandleEventError", channel)
	if err != nil {
		return err
	}
	ch.deliverError(NewChannelError(code, message))
	return nil
}

// HandleEventDone is called by the host when a native stream ends.
func HandleEventDone(channel string) error {
	ch, err := eventChannel("platform.HandleEventDone", channel)
	if err != nil {
		return err
	}
	ch.finish()
	return nil
}

// ResetForTest returns the package to its freshly initialized state: no
// bridge, no dispatcher, no live views, and only the built-in listeners.
// Only tests should call it.
func ResetForTest() {
	bridgeMu.Lock()
	nativeBridge = nil
	bridgeMu.Unlock()

	for _, ch := range registry.allEvents() {
		ch.reset()
	}
	dispatcher.Store(nil)
	platformViewRegistry.reset()

	for _, fn := range builtinInits {
		fn()
	}
}
