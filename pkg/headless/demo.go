package headless

import (
	_ "embed"

	"github.com/go-drift/captcha/pkg/captcha"
)

//go:embed demo.js
var demoSource string

// DemoScript returns a scripted widget that completes every challenge
// immediately. Besides start and reset, its instance exposes expire() and
// fail(code, detail) to drive the other outcomes.
func DemoScript() captcha.Script {
	return captcha.Script{
		Source:   demoSource,
		Version:  "1.0.0",
		Factory:  captcha.DefaultFactory,
		Instance: captcha.DefaultInstance,
	}
}
