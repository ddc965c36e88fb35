package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/scanchat/internal/config"
	"github.com/joss/scanchat/internal/render"
	"github.com/joss/scanchat/internal/selftest"
)

func doctorCmd() *cobra.Command {
	var (
		verbose bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check environment health",
		Long: `Diagnose the scanchat environment.

Checks:
  - Terminal and home directory
  - Backend reachability and latency
  - Session store readability
  - Token presence and expiry`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			paths := config.GetPaths()
			env := selftest.Check(paths.Home, paths.EnvFile)

			checker := &selftest.Checker{
				Backend: a.client,
				Store:   a.store,
				Token:   a.env.Token,
			}
			health := checker.CheckHealth(a.ctx)

			if asJSON {
				if err := printJSON(map[string]any{"environment": env, "health": health}); err != nil {
					return err
				}
			} else {
				if verbose {
					fmt.Print(env.Summary())
				} else {
					fmt.Println(env.QuickCheck())
				}
				printHealth(health, a.client.BaseURL())
				if verbose {
					printConfig(a)
				}
			}

			if !env.IsHealthy() || health.Status == "unhealthy" {
				return errors.New("environment is unhealthy")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostics")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printHealth(h *selftest.HealthStatus, baseURL string) {
	w := render.Stdout()
	w.Header("HEALTH: %s", h.Status)
	w.Item("backend url: %s", baseURL)

	names := make([]string, 0, len(h.Components))
	for name := range h.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := h.Components[name]
		line := fmt.Sprintf("%-8s %s", name, c.Status)
		if c.Latency > 0 {
			line += " (" + render.FormatDuration(time.Duration(c.Latency)*time.Millisecond) + ")"
		}
		w.Status(c.Status, "%s", line)
		if c.Error != "" {
			w.Nested("%s", c.Error)
		}
	}
	if h.LastError != "" {
		w.Item("last error: %s", h.LastError)
	}
}

func printConfig(a *app) {
	paths := config.GetPaths()
	w := render.Stdout()
	w.Section("config")
	w.Item("store: %s", a.storeKind)
	if a.storeKind == "sqlite" || a.storeKind == "" {
		w.SubItem("%s", config.DatabaseFile())
	}
	w.Check(config.HasToken(), "token configured")
	w.Check(a.authenticated, "token usable")
	w.Item("log file: %s", config.LogFile())
	w.Item("env file: %s", paths.EnvFile)
}
