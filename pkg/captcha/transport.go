package captcha

// Transport is the duplex channel between the widget script and the host.
//
// Implementations deliver inbound messages to the subscribed function one at
// a time, in arrival order. Evaluate runs a fire-and-forget expression in the
// script environment; it never blocks on the script and reports nothing,
// including after Close. Close cancels pending loads and releases the
// underlying surface; it must be idempotent and safe to call from a cleanup
// function.
type Transport interface {
	// Subscribe installs fn as the receiver of inbound messages, replacing
	// any previous one. The returned function removes it.
	Subscribe(fn func(msg map[string]any)) (cancel func())
	Evaluate(script string)
	Close()
}

// Surface is implemented by transports backed by a platform view the host
// application attaches to its view hierarchy.
type Surface interface {
	ViewID() int64
}
