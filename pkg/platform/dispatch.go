package platform

import (
	"sync/atomic"

	drifterrors "github.com/go-drift/captcha/pkg/errors"
)

// Dispatcher runs callback on the host UI thread.
type Dispatcher func(callback func())

var dispatcher atomic.Pointer[Dispatcher]

// RegisterDispatch installs the function the host uses to schedule callbacks
// on its UI thread. Passing nil removes it.
func RegisterDispatch(fn func(callback func())) {
	if fn == nil {
		dispatcher.Store(nil)
		return
	}
	d := Dispatcher(fn)
	dispatcher.Store(&d)
}

// Dispatch schedules callback on the UI thread and reports whether it was
// scheduled. Web view events carry widget messages, so a callback dropped for
// lack of a dispatcher is reported with [ErrNoDispatcher].
func Dispatch(callback func()) bool {
	if callback == nil {
		return false
	}
	d := dispatcher.Load()
	if d == nil {
		drifterrors.Report(&drifterrors.CaptchaError{
			Op:   "platform.Dispatch",
			Kind: drifterrors.KindPlatform,
			Err:  ErrNoDispatcher,
		})
		return false
	}
	(*d)(callback)
	return true
}
