package platform

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"github.com/go-drift/captcha/pkg/errors"
)

const platformViewsChannel = "drift/platform_views"

// PlatformView is a native view embedded in the host, addressed by ID on the
// platform views channel.
type PlatformView interface {
	// ViewID returns the ID native uses for this view.
	ViewID() int64

	// ViewType returns the factory type, e.g. "native_webview".
	ViewType() string

	// Dispose releases Go-side state. The registry tells native separately.
	Dispose()
}

// viewEventHandler is implemented by views that receive events from native.
type viewEventHandler interface {
	handleViewEvent(ev viewEvent)
}

// PlatformViewFactory builds the Go side of one view type.
type PlatformViewFactory interface {
	ViewType() string
	Create(viewID int64, params map[string]any) (PlatformView, error)
}

// PlatformViewRegistry tracks live platform views and routes native events
// to them by view ID.
type PlatformViewRegistry struct {
	channel *MethodChannel
	events  *EventChannel
	nextID  atomic.Int64

	mu        sync.RWMutex
	factories map[string]PlatformViewFactory // guarded by mu
	views     map[int64]PlatformView         // guarded by mu
}

var platformViewRegistry = newPlatformViewRegistry()

func init() {
	registerBuiltinInit(platformViewRegistry.listen)
}

// GetPlatformViewRegistry returns the process-wide view registry.
func GetPlatformViewRegistry() *PlatformViewRegistry {
	return platformViewRegistry
}

func newPlatformViewRegistry() *PlatformViewRegistry {
	r := &PlatformViewRegistry{
		channel:   NewMethodChannel(platformViewsChannel),
		events:    NewEventChannel(platformViewsChannel),
		factories: make(map[string]PlatformViewFactory),
		views:     make(map[int64]PlatformView),
	}
	r.channel.SetHandler(r.handleMethodCall)
	return r
}

func (r *PlatformViewRegistry) listen() {
	r.events.Listen(EventHandler{
		OnEvent: r.routeEvent,
		OnError: func(err error) {
			errors.Report(&errors.CaptchaError{
				Op:      "platform.viewEvents",
				Kind:    errors.KindPlatform,
				Channel: platformViewsChannel,
				Err:     err,
			})
		},
	})
}

func (r *PlatformViewRegistry) routeEvent(data any) {
	ev, ok := decodeViewEvent(data)
	if !ok {
		errors.Report(&errors.CaptchaError{
			Op:      "platform.routeEvent",
			Kind:    errors.KindParsing,
			Channel: platformViewsChannel,
			Err: &errors.ParseError{
				Channel:  platformViewsChannel,
				DataType: "PlatformViewEvent",
				Got:      data,
			},
		})
		return
	}

	// A view disposed a moment ago may still have events in flight.
	if h, ok := r.GetView(ev.ViewID).(viewEventHandler); ok {
		h.handleViewEvent(ev)
	}
}

// RegisterFactory makes a view type available to [PlatformViewRegistry.Create].
func (r *PlatformViewRegistry) RegisterFactory(factory PlatformViewFactory) {
	r.mu.Lock()
	r.factories[factory.ViewType()] = factory
	r.mu.Unlock()
}

// Create builds a view of viewType and asks native to create its
// counterpart. The view is registered before native is called so events
// native sends during creation are routed.
func (r *PlatformViewRegistry) Create(viewType string, params map[string]any) (PlatformView, error) {
	r.mu.RLock()
	factory, ok := r.factories[viewType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewTypeNotFound, viewType)
	}

	id := r.nextID.Add(1)
	view, err := factory.Create(id, params)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.views[id] = view
	r.mu.Unlock()

	if _, err := r.channel.Invoke("create", map[string]any{
		"viewId":   id,
		"viewType": viewType,
		"params":   params,
	}); err != nil {
		// Native never saw the view, so no dispose call goes out.
		r.forget(id)
		return nil, err
	}
	return view, nil
}

// Dispose releases a view on both sides. Unknown IDs are ignored, so
// repeated calls are safe.
func (r *PlatformViewRegistry) Dispose(viewID int64) {
	if r.forget(viewID) {
		r.channel.Invoke("dispose", map[string]any{"viewId": viewID})
	}
}

// forget drops a view from the registry and releases its Go side.
func (r *PlatformViewRegistry) forget(viewID int64) bool {
	r.mu.Lock()
	view, ok := r.views[viewID]
	delete(r.views, viewID)
	r.mu.Unlock()
	if ok {
		view.Dispose()
	}
	return ok
}

func (r *PlatformViewRegistry) reset() {
	r.mu.Lock()
	r.views = make(map[int64]PlatformView)
	r.mu.Unlock()
	r.nextID.Store(0)
}

// GetView returns the live view with the given ID, or nil.
func (r *PlatformViewRegistry) GetView(viewID int64) PlatformView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views[viewID]
}

// InvokeViewMethod calls method on one view. args is not modified.
func (r *PlatformViewRegistry) InvokeViewMethod(viewID int64, method string, args map[string]any) (any, error) {
	call := make(map[string]any, len(args)+2)
	maps.Copy(call, args)
	call["viewId"] = viewID
	call["method"] = method
	return r.channel.Invoke("invokeViewMethod", call)
}

// handleMethodCall answers lifecycle notifications from native. When native
// tears a view down on its own (the host activity or window went away) the
// Go side is released so later commands fail with [ErrDisposed].
func (r *PlatformViewRegistry) handleMethodCall(method string, args any) (any, error) {
	switch method {
	case "onViewCreated":
		return nil, nil
	case "onViewDisposed":
		var call struct {
			ViewID int64 `mapstructure:"viewId"`
		}
		if err := mapstructure.WeakDecode(args, &call); err != nil {
			return nil, fmt.Errorf("platform: onViewDisposed: %w", err)
		}
		r.forget(call.ViewID)
		return nil, nil
	default:
		return nil, ErrMethodNotFound
	}
}

// basePlatformView carries the identity every view shares.
type basePlatformView struct {
	viewID   int64
	viewType string
}

func (v *basePlatformView) ViewID() int64 {
	return v.viewID
}

func (v *basePlatformView) ViewType() string {
	return v.viewType
}
