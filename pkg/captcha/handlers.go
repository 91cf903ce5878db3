package captcha

import "sync/atomic"

// handlerSet is one immutable generation of registered callbacks.
type handlerSet struct {
	onComplete    func(CompleteEvent)
	onError       func(ErrorEvent)
	onExpire      func(ExpireEvent)
	onStateChange func(StateChangeEvent)
	onParseError  func(*ParseError)
	// closed is set by clear; later registrations are ignored.
	closed bool
}

// handlerRegistry swaps whole handler sets so a reader always sees a
// consistent generation, even while another goroutine registers.
type handlerRegistry struct {
	current atomic.Pointer[handlerSet]
}

func newHandlerRegistry() *handlerRegistry {
	r := &handlerRegistry{}
	r.current.Store(&handlerSet{})
	return r
}

func (r *handlerRegistry) load() *handlerSet {
	return r.current.Load()
}

// update copies the current set, applies fn to the copy and swaps it in.
func (r *handlerRegistry) update(fn func(*handlerSet)) {
	for {
		old := r.current.Load()
		if old.closed {
			return
		}
		next := *old
		fn(&next)
		if r.current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// clear replaces every slot with nothing and refuses later registrations.
func (r *handlerRegistry) clear() {
	r.current.Store(&handlerSet{closed: true})
}
