// Package main provides the scanchat CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/scanchat/internal/api"
	"github.com/joss/scanchat/internal/chat"
	"github.com/joss/scanchat/internal/config"
	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/logging"
	"github.com/joss/scanchat/internal/metrics"
	"github.com/joss/scanchat/internal/render"
	"github.com/joss/scanchat/internal/runtime"
	"github.com/joss/scanchat/internal/selftest"
	"github.com/joss/scanchat/internal/session"
	"github.com/joss/scanchat/internal/storage"
	"github.com/joss/scanchat/internal/tui"
)

var (
	version = "0.1.0"
	pretty  = true
	backend string
)

// app holds the wired services for one command invocation.
type app struct {
	ctx           context.Context
	env           *config.ScanEnv
	store         domain.LocalStore
	storeKind     string
	client        *api.Client
	sessions      *session.Manager
	orchestrator  *chat.Orchestrator
	notifier      *tui.Notifier
	renderer      *render.Renderer
	authenticated bool
}

var (
	current  *app
	shutdown = runtime.NewShutdownManager(runtime.DefaultShutdownTimeout)
)

func main() {
	code := 2
	guard := logging.NewRecoveryHandler("main")
	guard.OnPanic = func(pe *logging.PanicError) {
		fmt.Fprintf(os.Stderr, "Error: internal failure: %v\n", pe.Value)
	}
	guard.Wrap(func() { code = run() })
	os.Exit(code)
}

func run() int {
	defer func() {
		if err := shutdown.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup: %v\n", err)
		}
	}()
	stop := shutdown.ListenForSignals()
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "scanchat",
		Short: "Chat with the malware analysis service from your terminal",
		Long: `scanchat uploads files to the analysis backend and keeps the
conversation about each scan as a chat session.

Usage modes:
  scanchat              Start the interactive chat (terminal only)
  scanchat <command>    Run one command (see below)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["bare"] == "true" {
				return nil
			}
			a, err := setup(shutdown.Context())
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return cmd.Help()
			}
			return runChat(current, "")
		},
	}

	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "Pretty print output")
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "Session store: sqlite, redis or memory (default from SCANCHAT_STORE)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "chat", Title: "Chat:"},
		&cobra.Group{ID: "history", Title: "History:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	send := sendCmd()
	send.GroupID = "chat"
	rootCmd.AddCommand(send)

	v := varCmd()
	v.GroupID = "chat"
	rootCmd.AddCommand(v)

	c := chatCmd()
	c.GroupID = "chat"
	rootCmd.AddCommand(c)

	sessions := sessionsCmd()
	sessions.GroupID = "history"
	rootCmd.AddCommand(sessions)

	doctor := doctorCmd()
	doctor.GroupID = "system"
	rootCmd.AddCommand(doctor)

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.ExecuteContext(shutdown.Context()); err != nil {
		selftest.SetLastError(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setup loads configuration and wires the store, backend client and
// services. Cleanups are registered so the store closes before logs flush.
func setup(ctx context.Context) (*app, error) {
	env := config.Env()

	if err := config.EnsureDir(config.GetPaths().Logs); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if err := logging.Init(logging.Options{
		File:    config.LogFile(),
		Level:   env.LogLevel,
		Console: env.Debug,
	}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	shutdown.RegisterSimple("logs", func() {
		logging.New("main").Info("stats", anyMap(metrics.Global().Snapshot()))
		_ = logging.Sync()
	})

	kind := env.Store
	if backend != "" {
		kind = backend
	}
	store, err := storage.Open(ctx, storage.Options{
		Backend:    kind,
		SQLitePath: config.DatabaseFile(),
		RedisURL:   env.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", kind, err)
	}
	shutdown.Register("store", func(context.Context) error { return store.Close() })

	client := api.New(env.APIURL, env.Token, env.HTTPTimeout)
	authenticated := api.Authenticated(env.Token, time.Now())

	var remote domain.RemoteSessions
	if authenticated {
		remote = client
	}
	sessions := session.NewManager(store, remote)
	notifier := tui.NewNotifier()
	orchestrator := chat.New(client, sessions, chat.WithObserver(notifier.Observe))

	logging.New("main").Info("started", map[string]any{
		"store":         kind,
		"api_url":       env.APIURL,
		"authenticated": authenticated,
	})

	return &app{
		ctx:           ctx,
		env:           env,
		store:         store,
		storeKind:     kind,
		client:        client,
		sessions:      sessions,
		orchestrator:  orchestrator,
		notifier:      notifier,
		renderer:      render.New(pretty && term.IsTerminal(int(os.Stdout.Fd()))),
		authenticated: authenticated,
	}, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show scanchat version",
		Annotations: map[string]string{"bare": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scanchat version %s\n", version)
		},
	}
}

func anyMap(in map[string]int64) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
