package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/captcha/pkg/errors"
)

// WebViewOptions configures the native web view created by a
// [WebViewController].
type WebViewOptions struct {
	// MessageHandlers lists the script message handler names exposed to the
	// page. On iOS each becomes window.webkit.messageHandlers.<name>; on
	// Android each becomes a JavaScript interface object window.<name> with
	// a postMessage(string) method.
	MessageHandlers []string

	// Transparent makes the web view background transparent so the page
	// background shows through.
	Transparent bool
}

func (o WebViewOptions) params() map[string]any {
	handlers := make([]any, len(o.MessageHandlers))
	for i, h := range o.MessageHandlers {
		handlers[i] = h
	}
	return map[string]any{
		"javaScriptEnabled": true,
		"messageHandlers":   handlers,
		"transparent":       o.Transparent,
	}
}

// WebViewController provides control over a native web browser view.
// The controller creates its platform view eagerly, so methods and callbacks
// work immediately after construction.
//
//	web := platform.NewWebViewController(platform.WebViewOptions{
//		MessageHandlers: []string{"captcha"},
//	})
//	web.OnScriptMessage = func(name string, body any) { ... }
//	web.LoadHTML(page, "https://example.com")
//
// Set callback fields before calling a load method to ensure no events are
// missed. Callback fields are read when an event arrives.
//
// All methods are safe for concurrent use.
type WebViewController struct {
	mu     sync.RWMutex
	viewID int64 // guarded by mu

	// OnPageStarted is called when a page starts loading.
	// Called on the UI thread.
	OnPageStarted func(url string)

	// OnPageFinished is called when a page finishes loading.
	// Called on the UI thread.
	OnPageFinished func(url string)

	// OnError is called when a loading or script error occurs.
	// The code parameter is one of [ErrCodeNetworkError], [ErrCodeSSLError],
	// [ErrCodeLoadFailed] or [ErrCodeScriptFailed]. Called on the UI thread.
	OnError func(code, message string)

	// OnScriptMessage is called when page script posts to one of the
	// registered message handlers. Body is a JSON string on Android and a
	// decoded value on iOS. Called on the UI thread.
	OnScriptMessage func(name string, body any)
}

// NewWebViewController creates a new web view controller.
// The underlying platform view is created eagerly so methods and callbacks
// work immediately. If creation fails the error is reported and every
// method returns [ErrDisposed].
func NewWebViewController(opts WebViewOptions) *WebViewController {
	c := &WebViewController{}

	view, err := GetPlatformViewRegistry().Create(webViewType, opts.params())
	if err != nil {
		errors.Report(&errors.CaptchaError{
			Op:   "platform.NewWebViewController",
			Kind: errors.KindPlatform,
			Err:  fmt.Errorf("failed to create webview: %w", err),
		})
		return c
	}

	webView, ok := view.(*nativeWebView)
	if !ok {
		errors.Report(&errors.CaptchaError{
			Op:   "platform.NewWebViewController",
			Kind: errors.KindPlatform,
			Err:  fmt.Errorf("unexpected view type: %T", view),
		})
		return c
	}

	c.viewID = webView.ViewID()

	webView.setCallbacks(webViewCallbacks{
		onPageStarted: func(url string) {
			if c.OnPageStarted != nil {
				c.OnPageStarted(url)
			}
		},
		onPageFinished: func(url string) {
			if c.OnPageFinished != nil {
				c.OnPageFinished(url)
			}
		},
		onError: func(code, message string) {
			if c.OnError != nil {
				c.OnError(code, message)
			}
		},
		onScriptMessage: func(name string, body any) {
			if c.OnScriptMessage != nil {
				c.OnScriptMessage(name, body)
			}
		},
	})

	return c
}

// ViewID returns the platform view ID, or 0 if the view was not created
// or has been disposed.
func (c *WebViewController) ViewID() int64 {
	c.mu.RLock()
	id := c.viewID
	c.mu.RUnlock()
	return id
}

// liveID returns the view ID while the registry still holds the view.
// Native may dispose a view on its own, so the controller's ID alone is
// not enough.
func (c *WebViewController) liveID() (int64, error) {
	id := c.ViewID()
	if id == 0 || GetPlatformViewRegistry().GetView(id) == nil {
		return 0, ErrDisposed
	}
	return id, nil
}

func (c *WebViewController) invoke(method string, args map[string]any) error {
	id, err := c.liveID()
	if err != nil {
		return err
	}
	_, err = GetPlatformViewRegistry().InvokeViewMethod(id, method, args)
	return err
}

// LoadHTML loads an HTML document. Relative URLs and the page origin
// resolve against baseURL.
func (c *WebViewController) LoadHTML(html, baseURL string) error {
	return c.invoke("loadHTML", map[string]any{
		"html":    html,
		"baseUrl": baseURL,
	})
}

// EvaluateJavascript evaluates script in the current page. The native side
// does not return the result; script exceptions surface through OnError
// with [ErrCodeScriptFailed].
func (c *WebViewController) EvaluateJavascript(script string) error {
	return c.invoke("evaluateJavascript", map[string]any{"script": script})
}

// StopLoading cancels any pending page or resource loads.
func (c *WebViewController) StopLoading() error {
	return c.invoke("stopLoading", nil)
}

// Dispose releases the web view and its native resources. After disposal,
// this controller must not be reused. Dispose is idempotent; calling it more
// than once is safe.
func (c *WebViewController) Dispose() {
	c.mu.Lock()
	id := c.viewID
	c.viewID = 0
	c.mu.Unlock()
	if id != 0 {
		GetPlatformViewRegistry().Dispose(id)
	}
}
