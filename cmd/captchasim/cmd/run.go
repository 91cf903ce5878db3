package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/go-drift/captcha/pkg/captcha"
	"github.com/go-drift/captcha/pkg/headless"
)

func (c *cli) newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a widget headlessly and log what the host observes",
		Long: `Boots the widget script in an in-process JavaScript runtime, applies the
given steps in order and logs every event delivered to the host. The widget
is destroyed at the end and its final state is printed.

Steps:
  start    ask the widget to solve
  reset    ask the widget to discard its progress
  expire   make the demo widget expire its response
  fail     make the demo widget report an error`,
		Example: `  captchasim run --sitekey FCMTEST --steps start,expire,reset,start`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			script, err := loadScript(cmd)
			if err != nil {
				return err
			}
			steps, _ := cmd.Flags().GetStringSlice("steps")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			withMetrics, _ := cmd.Flags().GetBool("metrics")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			reg := prometheus.NewRegistry()
			opts := []captcha.Option{captcha.WithLogger(c.logger), captcha.WithScript(script)}
			if withMetrics {
				m, err := captcha.NewMetrics(reg)
				if err != nil {
					return err
				}
				opts = append(opts, captcha.WithMetrics(m))
			}
			return c.simulate(ctx, cmd, cfg, script, steps, opts, reg, withMetrics)
		},
	}

	runCmd.Flags().StringSlice("steps", []string{"start"}, "Comma-separated steps to apply")
	runCmd.Flags().Duration("timeout", 10*time.Second, "Give up if the widget does not settle in time")
	runCmd.Flags().Bool("metrics", false, "Log bridge metrics at the end")
	addScriptFlags(runCmd)
	return runCmd
}

func (c *cli) simulate(ctx context.Context, cmd *cobra.Command, cfg captcha.Config, script captcha.Script,
	steps []string, opts []captcha.Option, reg *prometheus.Registry, withMetrics bool) error {
	env := headless.New(headless.WithLogger(c.logger))
	w, err := captcha.New(cfg, append(opts, captcha.WithTransport(env))...)
	if err != nil {
		env.Close()
		return err
	}
	defer w.Destroy()

	w.OnStateChange(func(e captcha.StateChangeEvent) {
		attrs := []any{"state", e.State, "response", e.Response, "id", e.ID}
		if e.Error != nil {
			attrs = append(attrs, "error", e.Error.Code)
		}
		c.logger.Info("statechange", attrs...)
	})
	w.OnComplete(func(e captcha.CompleteEvent) {
		c.logger.Info("complete", "response", e.Response, "id", e.ID)
	})
	w.OnExpire(func(e captcha.ExpireEvent) {
		c.logger.Info("expire", "id", e.ID)
	})
	w.OnError(func(e captcha.ErrorEvent) {
		c.logger.Warn("error", "code", e.Error.Code, "detail", e.Error.Detail, "id", e.ID)
	})
	w.OverrideParseError(func(pe *captcha.ParseError) {
		c.logger.Warn("undecodable message", "reason", pe.Reason, "type", pe.Tag, "detail", pe.Detail)
	})

	if err := env.Boot(ctx, cfg, script); err != nil {
		return err
	}
	if err := env.Flush(ctx); err != nil {
		return err
	}

	instance := script.Instance
	if instance == "" {
		instance = captcha.DefaultInstance
	}
	for _, step := range steps {
		switch strings.TrimSpace(step) {
		case "start":
			w.Start()
		case "reset":
			w.Reset()
		case "expire":
			env.Evaluate(fmt.Sprintf("window.%s.expire()", instance))
		case "fail":
			env.Evaluate(fmt.Sprintf("window.%s.fail(%q, %q)", instance, "simulated", "requested by captchasim"))
		default:
			return fmt.Errorf("unknown step %q (use start, reset, expire or fail)", step)
		}
		if err := env.Flush(ctx); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
	}

	w.Destroy()
	snap := w.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "state=%s response=%s id=%s\n", snap.State, snap.Response, snap.ID)

	if withMetrics {
		return c.logMetrics(reg)
	}
	return nil
}

func (c *cli) logMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"name", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			c.logger.Info("metric", attrs...)
		}
	}
	return nil
}
