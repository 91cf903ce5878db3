package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/captcha/pkg/captcha"
	"github.com/go-drift/captcha/pkg/headless"
)

func (c *cli) newPageCmd() *cobra.Command {
	pageCmd := &cobra.Command{
		Use:   "page",
		Short: "Print the HTML page loaded into the widget web view",
		Long: `Renders the page the native web view loads for the configured widget.

Without --script the built-in demo widget is inlined, so the page can be
opened in a desktop browser to inspect layout and theming.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			script, err := loadScript(cmd)
			if err != nil {
				return err
			}

			page, err := captcha.BuildPage(cfg, script)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" || out == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), page)
				return err
			}
			if err := os.WriteFile(out, []byte(page), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			c.logger.Info("page written", "path", out, "bytes", len(page))
			return nil
		},
	}

	pageCmd.Flags().StringP("output", "o", "", "Write the page to a file instead of stdout")
	addScriptFlags(pageCmd)
	return pageCmd
}

// loadScript reads --script, falling back to the demo widget.
func loadScript(cmd *cobra.Command) (captcha.Script, error) {
	path, _ := cmd.Flags().GetString("script")
	if path == "" {
		return headless.DemoScript(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return captcha.Script{}, fmt.Errorf("failed to read script: %w", err)
	}
	version, _ := cmd.Flags().GetString("script-version")
	script := captcha.Script{Source: string(src), Version: version}
	if err := script.Validate(); err != nil {
		return captcha.Script{}, err
	}
	return script, nil
}

func addScriptFlags(cmd *cobra.Command) {
	cmd.Flags().String("script", "", "Widget script file (default: built-in demo widget)")
	cmd.Flags().String("script-version", "1.0.0", "Semantic version of --script")
}
