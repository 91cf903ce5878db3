package platform

import "sync"

const webViewType = "native_webview"

type nativeWebViewFactory struct{}

func (nativeWebViewFactory) ViewType() string {
	return webViewType
}

func (nativeWebViewFactory) Create(viewID int64, params map[string]any) (PlatformView, error) {
	return &nativeWebView{
		basePlatformView: basePlatformView{
			viewID:   viewID,
			viewType: webViewType,
		},
	}, nil
}

// webViewCallbacks holds the callbacks of a nativeWebView. A nil field
// drops the corresponding event.
type webViewCallbacks struct {
	onPageStarted   func(url string)
	onPageFinished  func(url string)
	onError         func(code, message string)
	onScriptMessage func(name string, body any)
}

type nativeWebView struct {
	basePlatformView
	mu        sync.RWMutex
	callbacks webViewCallbacks
	disposed  bool
}

// Dispose drops all callbacks so events still queued on the UI thread
// become no-ops.
func (v *nativeWebView) Dispose() {
	v.mu.Lock()
	v.callbacks = webViewCallbacks{}
	v.disposed = true
	v.mu.Unlock()
}

func (v *nativeWebView) setCallbacks(cb webViewCallbacks) {
	v.mu.Lock()
	if !v.disposed {
		v.callbacks = cb
	}
	v.mu.Unlock()
}

func (v *nativeWebView) currentCallbacks() webViewCallbacks {
	v.mu.RLock()
	cb := v.callbacks
	v.mu.RUnlock()
	return cb
}

// handleViewEvent processes events from native. Callbacks run on the UI
// thread via [Dispatch].
func (v *nativeWebView) handleViewEvent(ev viewEvent) {
	cb := v.currentCallbacks()
	switch ev.Method {
	case "onPageStarted":
		if fn := cb.onPageStarted; fn != nil {
			Dispatch(func() { fn(ev.URL) })
		}
	case "onPageFinished":
		if fn := cb.onPageFinished; fn != nil {
			Dispatch(func() { fn(ev.URL) })
		}
	case "onWebViewError":
		if fn := cb.onError; fn != nil {
			Dispatch(func() { fn(ev.Code, ev.Message) })
		}
	case "onScriptMessage":
		if fn := cb.onScriptMessage; fn != nil {
			Dispatch(func() { fn(ev.Name, ev.Body) })
		}
	}
}

func init() {
	GetPlatformViewRegistry().RegisterFactory(nativeWebViewFactory{})
}
