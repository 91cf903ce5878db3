package captcha

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	drifterrors "github.com/go-drift/captcha/pkg/errors"
	"github.com/go-drift/captcha/pkg/platform"
)

// ErrSurfaceUnavailable is returned when the native web view could not be
// created, typically because no native bridge is installed.
var ErrSurfaceUnavailable = errors.New("captcha: web view unavailable")

// ErrPageLoad is reported when the web view fails to load the widget page.
var ErrPageLoad = errors.New("captcha: page failed to load")

// WebViewTransport carries widget messages over a native web view.
type WebViewTransport struct {
	web    *platform.WebViewController
	logger *slog.Logger

	mu       sync.Mutex
	listener func(map[string]any) // guarded by mu
	closed   bool                 // guarded by mu
	loaded   bool                 // guarded by mu
	pending  []string             // guarded by mu; commands waiting for the page
}

// NewWebViewTransport creates a web view, loads the widget page into it and
// returns a transport bound to it.
func NewWebViewTransport(cfg Config, script Script, logger *slog.Logger) (*WebViewTransport, error) {
	page, err := BuildPage(cfg, script)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	web := platform.NewWebViewController(platform.WebViewOptions{
		MessageHandlers: []string{MessageHandlerName},
		Transparent:     true,
	})
	if web.ViewID() == 0 {
		return nil, ErrSurfaceUnavailable
	}

	t := &WebViewTransport{web: web, logger: logger}
	web.OnScriptMessage = t.onScriptMessage
	web.OnPageStarted = t.onPageStarted
	web.OnPageFinished = t.onPageFinished
	web.OnError = t.onWebViewError

	if err := web.LoadHTML(page, cfg.WithDefaults().BaseURL); err != nil {
		web.Dispose()
		return nil, fmt.Errorf("captcha: load page: %w", err)
	}
	return t, nil
}

// Subscribe implements Transport.
func (t *WebViewTransport) Subscribe(fn func(msg map[string]any)) func() {
	t.mu.Lock()
	if !t.closed {
		t.listener = fn
	}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.listener = nil
			t.mu.Unlock()
		})
	}
}

// Evaluate implements Transport. Commands issued while the page is loading
// are held and run once it has finished. Failures are logged at debug level
// and otherwise ignored.
func (t *WebViewTransport) Evaluate(script string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if !t.loaded {
		t.pending = append(t.pending, script)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.evaluate(script)
}

func (t *WebViewTransport) evaluate(script string) {
	if err := t.web.EvaluateJavascript(script); err != nil {
		t.logger.Debug("captcha command not delivered", "error", err)
	}
}

func (t *WebViewTransport) onPageStarted(url string) {
	t.mu.Lock()
	t.loaded = false
	t.mu.Unlock()
	t.logger.Debug("captcha page loading", "url", url)
}

func (t *WebViewTransport) onPageFinished(url string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.loaded = true
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	t.logger.Debug("captcha page loaded", "url", url, "pending", len(pending))
	for _, script := range pending {
		t.evaluate(script)
	}
}

// onWebViewError reports page load failures; the widget cannot boot without
// its page. A failed command only means the page was not ready for it.
func (t *WebViewTransport) onWebViewError(code, message string) {
	if code == platform.ErrCodeScriptFailed {
		t.logger.Debug("captcha command failed", "message", message)
		return
	}
	drifterrors.Report(&drifterrors.CaptchaError{
		Op:   "captcha.WebViewTransport",
		Kind: drifterrors.KindTransport,
		Err:  fmt.Errorf("%w: %s: %s", ErrPageLoad, code, message),
	})
}

// ViewID returns the platform view to embed, or 0 after Close.
func (t *WebViewTransport) ViewID() int64 {
	return t.web.ViewID()
}

// Close stops pending loads and releases the web view.
func (t *WebViewTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.listener = nil
	t.pending = nil
	t.mu.Unlock()

	t.web.StopLoading()
	t.web.Dispose()
}

func (t *WebViewTransport) onScriptMessage(name string, body any) {
	if name != MessageHandlerName {
		return
	}
	t.mu.Lock()
	fn := t.listener
	t.mu.Unlock()
	if fn == nil {
		return
	}

	msg, err := decodeBody(body)
	if err != nil {
		drifterrors.Report(&drifterrors.CaptchaError{
			Op:   "captcha.WebViewTransport",
			Kind: drifterrors.KindParsing,
			Err:  err,
		})
		return
	}
	fn(msg)
}

// decodeBody accepts the JSON string Android posts and the object iOS posts.
func decodeBody(body any) (map[string]any, error) {
	value := body
	if s, ok := body.(string); ok {
		decoded, err := platform.DefaultCodec.Decode([]byte(s))
		if err != nil {
			return nil, err
		}
		value = decoded
	}
	msg, ok := value.(map[string]any)
	if !ok {
		return nil, &drifterrors.ParseError{
			Channel:  MessageHandlerName,
			DataType: "ScriptMessage",
			Got:      body,
		}
	}
	return msg, nil
}
