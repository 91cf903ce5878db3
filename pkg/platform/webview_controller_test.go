package platform

import "testing"

func TestWebViewController_Lifecycle(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	if c.ViewID() == 0 {
		t.Error("expected non-zero ViewID")
	}

	c.Dispose()

	if c.ViewID() != 0 {
		t.Error("expected zero ViewID after Dispose")
	}
	c.Dispose()
}

func TestWebViewController_CreateParams(t *testing.T) {
	bridge := setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{MessageHandlers: []string{"captcha"}, Transparent: true})
	defer c.Dispose()

	calls := bridge.callsFor("create")
	if len(calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(calls))
	}
	args := calls[0].args.(map[string]any)
	if args["viewType"] != "native_webview" {
		t.Errorf("viewType = %v, want native_webview", args["viewType"])
	}
	params := args["params"].(map[string]any)
	handlers := params["messageHandlers"].([]any)
	if len(handlers) != 1 || handlers[0] != "captcha" {
		t.Errorf("messageHandlers = %v, want [captcha]", handlers)
	}
	if params["transparent"] != true {
		t.Errorf("transparent = %v, want true", params["transparent"])
	}
}

func TestWebViewController_ViewMethods(t *testing.T) {
	bridge := setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	defer c.Dispose()

	for _, tc := range []struct {
		name string
		fn   func() error
	}{
		{"loadHTML", func() error { return c.LoadHTML("<html></html>", "https://example.com") }},
		{"evaluateJavascript", func() error { return c.EvaluateJavascript("widget.start()") }},
		{"stopLoading", func() error { return c.StopLoading() }},
	} {
		if err := tc.fn(); err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
	}

	got := bridge.viewMethods()
	want := []string{"loadHTML", "evaluateJavascript", "stopLoading"}
	if len(got) != len(want) {
		t.Fatalf("view methods = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("view method %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWebViewController_EvaluateJavascriptArgs(t *testing.T) {
	bridge := setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	defer c.Dispose()

	if err := c.EvaluateJavascript("widget.reset()"); err != nil {
		t.Fatalf("EvaluateJavascript: %v", err)
	}
	calls := bridge.callsFor("invokeViewMethod")
	args := calls[len(calls)-1].args.(map[string]any)
	if args["script"] != "widget.reset()" {
		t.Errorf("script = %v, want widget.reset()", args["script"])
	}
	if id, _ := args["viewId"].(float64); int64(id) != c.ViewID() {
		t.Errorf("viewId = %v, want %d", args["viewId"], c.ViewID())
	}
}

func TestWebViewController_PageCallbacks(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	defer c.Dispose()

	var started, finished string
	c.OnPageStarted = func(url string) { started = url }
	c.OnPageFinished = func(url string) { finished = url }

	sendWebViewEvent(t, c.ViewID(), "onPageStarted", map[string]any{"url": "https://example.com"})
	sendWebViewEvent(t, c.ViewID(), "onPageFinished", map[string]any{"url": "https://example.com/page"})

	if started != "https://example.com" {
		t.Errorf("OnPageStarted url: got %q", started)
	}
	if finished != "https://example.com/page" {
		t.Errorf("OnPageFinished url: got %q", finished)
	}
}

func TestWebViewController_ErrorCallback(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	defer c.Dispose()

	var gotCode, gotMessage string
	c.OnError = func(code, message string) {
		gotCode = code
		gotMessage = message
	}

	sendWebViewEvent(t, c.ViewID(), "onWebViewError", map[string]any{
		"code":    ErrCodeNetworkError,
		"message": "net::ERR_NAME_NOT_RESOLVED",
	})

	if gotCode != ErrCodeNetworkError {
		t.Errorf("OnError code: got %q, want %q", gotCode, ErrCodeNetworkError)
	}
	if gotMessage != "net::ERR_NAME_NOT_RESOLVED" {
		t.Errorf("OnError message: got %q", gotMessage)
	}
}

func TestWebViewController_ScriptMessageCallback(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{MessageHandlers: []string{"captcha"}})
	defer c.Dispose()

	var gotName string
	var gotBody any
	c.OnScriptMessage = func(name string, body any) {
		gotName = name
		gotBody = body
	}

	sendWebViewEvent(t, c.ViewID(), "onScriptMessage", map[string]any{
		"name": "captcha",
		"body": `{"type":"expire","data":{"id":"w1"}}`,
	})

	if gotName != "captcha" {
		t.Errorf("name = %q, want captcha", gotName)
	}
	if gotBody != `{"type":"expire","data":{"id":"w1"}}` {
		t.Errorf("body = %v", gotBody)
	}
}

func TestWebViewController_NilCallbacksDoNotPanic(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	defer c.Dispose()

	sendWebViewEvent(t, c.ViewID(), "onPageStarted", map[string]any{"url": "https://example.com"})
	sendWebViewEvent(t, c.ViewID(), "onPageFinished", map[string]any{"url": "https://example.com"})
	sendWebViewEvent(t, c.ViewID(), "onWebViewError", map[string]any{"code": "load_failed"})
	sendWebViewEvent(t, c.ViewID(), "onScriptMessage", map[string]any{"name": "captcha", "body": "{}"})
}

func TestWebViewController_NoEventsAfterDispose(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	id := c.ViewID()
	called := false
	c.OnScriptMessage = func(string, any) { called = true }
	c.Dispose()

	sendWebViewEvent(t, id, "onScriptMessage", map[string]any{"name": "captcha", "body": "{}"})
	if called {
		t.Error("script message delivered after Dispose")
	}
}

func TestWebViewController_MethodsReturnErrDisposedAfterDispose(t *testing.T) {
	setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	c.Dispose()

	for _, tc := range []struct {
		name string
		fn   func() error
	}{
		{"LoadHTML", func() error { return c.LoadHTML("", "") }},
		{"EvaluateJavascript", func() error { return c.EvaluateJavascript("1") }},
		{"StopLoading", func() error { return c.StopLoading() }},
	} {
		if err := tc.fn(); err != ErrDisposed {
			t.Errorf("%s after Dispose: got %v, want ErrDisposed", tc.name, err)
		}
	}
}

func TestWebViewController_WithoutBridge(t *testing.T) {
	t.Cleanup(ResetForTest)

	c := NewWebViewController(WebViewOptions{})
	if c.ViewID() != 0 {
		t.Error("expected zero ViewID when the native bridge is missing")
	}
	if err := c.EvaluateJavascript("1"); err != ErrDisposed {
		t.Errorf("EvaluateJavascript: got %v, want ErrDisposed", err)
	}
}

// sendWebViewEvent simulates a native event arriving for a webview platform view.
func sendWebViewEvent(t *testing.T, viewID int64, method string, args map[string]any) {
	t.Helper()
	if err := SendViewEventForTest(viewID, method, args); err != nil {
		t.Fatalf("SendViewEventForTest: %v", err)
	}
}

func TestWebViewController_NativeDisposal(t *testing.T) {
	bridge := setupTestBridge(t)

	c := NewWebViewController(WebViewOptions{})
	id := c.ViewID()

	args, _ := DefaultCodec.Encode(map[string]any{"viewId": id})
	if _, err := HandleMethodCall(platformViewsChannel, "onViewDisposed", args); err != nil {
		t.Fatalf("onViewDisposed: %v", err)
	}
	if GetPlatformViewRegistry().GetView(id) != nil {
		t.Error("view still registered after native disposal")
	}
	if err := c.EvaluateJavascript("1"); err != ErrDisposed {
		t.Errorf("EvaluateJavascript: got %v, want ErrDisposed", err)
	}

	c.Dispose()
	if n := len(bridge.callsFor("dispose")); n != 0 {
		t.Errorf("dispose calls = %d, want 0 for a view native already released", n)
	}
}
