// Command captchasim renders captcha widget pages and drives the demo widget
// headlessly, for checking host configuration without a device.
package main

import (
	"os"

	"github.com/go-drift/captcha/cmd/captchasim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
