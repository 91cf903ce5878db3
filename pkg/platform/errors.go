package platform

import "errors"

var (
	// ErrChannelNotFound indicates the requested platform channel does not exist.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound indicates no handler is registered for the method.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrPlatformUnavailable indicates no native bridge is installed
	// (headless process, tests without a bridge, or shutdown).
	ErrPlatformUnavailable = errors.New("platform feature unavailable")

	// ErrViewTypeNotFound indicates the platform view type is not registered.
	ErrViewTypeNotFound = errors.New("platform view type not registered")

	// ErrDisposed is returned by web view controller methods after the
	// view has been released.
	ErrDisposed = errors.New("platform: view disposed")

	// ErrNoDispatcher is reported when a view event arrives before the host
	// has called [RegisterDispatch].
	ErrNoDispatcher = errors.New("platform: no UI dispatcher registered")
)

// Web view error codes delivered to [WebViewController] OnError callbacks.
// The Android and iOS hosts map their native failures onto these so the
// captcha bridge can tell a broken page from a widget-reported error.
const (
	ErrCodeNetworkError = "network_error"
	ErrCodeSSLError     = "ssl_error"
	ErrCodeLoadFailed   = "load_failed"
	// ErrCodeScriptFailed means evaluating a widget command threw or the
	// page was not ready.
	ErrCodeScriptFailed = "script_failed"
)
