// Package captcha embeds a third-party JavaScript captcha widget in a native
// web view and relays its lifecycle to Go callbacks.
//
// The widget script is opaque: it solves challenges and decides its own state.
// This package keeps a passive mirror of what the script reports, fans events
// out to registered handlers, and issues fire-and-forget start and reset
// commands back to the script.
//
// Messages flow one way through a [Transport]:
//
//	script -> Transport -> DecodeEvent -> mirror -> handlers
//
// and commands flow the other way through [Transport.Evaluate]. The default
// transport drives a [platform.WebViewController]; package headless provides
// one backed by an in-process JavaScript runtime.
//
// A typical embedding:
//
//	w, err := captcha.New(captcha.Config{SiteKey: key, Theme: captcha.ThemeAuto},
//		captcha.WithScript(script))
//	if err != nil {
//		return err
//	}
//	w.OnComplete(func(e captcha.CompleteEvent) { submit(e.Response) })
//	defer w.Destroy()
//
// Handlers run serially on the delivery thread. They may read [Widget.State]
// and call [Widget.Start] or [Widget.Reset], but must not call
// [Widget.Destroy] synchronously; schedule it with [platform.Dispatch]
// or a goroutine instead.
package captcha
