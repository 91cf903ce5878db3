// Package cmd implements the captchasim commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/captcha/pkg/captcha"
	drifterrors "github.com/go-drift/captcha/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// cli holds state shared by the commands of one invocation.
type cli struct {
	logger *slog.Logger
}

// newRootCmd builds the command tree. Each call returns independent
// commands and flags.
func newRootCmd() *cobra.Command {
	c := &cli{logger: slog.Default()}
	root := &cobra.Command{
		Use:   "captchasim",
		Short: "Simulate embedded captcha widgets",
		Long: `captchasim renders the page a captcha widget is loaded from and runs a
scripted demo widget in an in-process JavaScript runtime, reporting every
state change the host would observe.

Configuration is read from a YAML file (--config) and may be overridden
with flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setupLogging,
	}

	flags := root.PersistentFlags()
	flags.String("config", "captcha.yaml", "Widget configuration file")
	flags.String("log-format", "text", "Log format: text or json")
	flags.BoolP("verbose", "v", false, "Log debug output, including error stack traces")

	flags.String("sitekey", "", "Site key (overrides config)")
	flags.String("endpoint", "", "Endpoint preset (global, eu) or URL (overrides config)")
	flags.String("language", "", "Widget language as a BCP 47 tag (overrides config)")
	flags.String("theme", "", "Theme: light, dark or auto (overrides config)")
	flags.String("base-url", "", "Page origin (overrides config)")

	root.AddCommand(newVersionCmd(), c.newPageCmd(), c.newRunCmd())
	return root
}

// setupLogging installs the process-wide logger and error handler. Logs go
// to the command's error stream.
func (c *cli) setupLogging(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("log-format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", format)
	}
	c.logger = slog.New(handler)
	slog.SetDefault(c.logger)
	drifterrors.SetHandler(&drifterrors.LogHandler{Logger: c.logger, Verbose: verbose})
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of captchasim",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "captchasim version %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(cmd *cobra.Command) (captcha.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := captcha.LoadConfig(path)
	if err != nil {
		return captcha.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("sitekey") {
		cfg.SiteKey, _ = flags.GetString("sitekey")
	}
	if flags.Changed("endpoint") {
		v, _ := flags.GetString("endpoint")
		cfg.Endpoint = captcha.Endpoint(v)
	}
	if flags.Changed("language") {
		cfg.Language, _ = flags.GetString("language")
	}
	if flags.Changed("theme") {
		v, _ := flags.GetString("theme")
		cfg.Theme = captcha.Theme(v)
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}

	if err := cfg.Validate(); err != nil {
		return captcha.Config{}, err
	}
	return cfg.WithDefaults(), nil
}
