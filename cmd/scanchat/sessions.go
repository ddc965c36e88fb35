package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/scanchat/internal/backup"
	"github.com/joss/scanchat/internal/render"
	"github.com/joss/scanchat/internal/session"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "List, show, delete and back up saved chats",
	}

	cmd.AddCommand(sessionsListCmd(), sessionsShowCmd(), sessionsDeleteCmd(),
		sessionsExportCmd(), sessionsImportCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats grouped by recency",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			list := a.sessions.List(a.ctx, a.authenticated)

			if asJSON {
				return printJSON(list)
			}
			fmt.Print(a.renderer.Sessions(session.GroupByRecency(list, time.Now())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func sessionsShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print the full thread of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			s, err := a.sessions.Get(a.ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(s)
			}
			fmt.Print(a.renderer.Thread(s))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func sessionsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <chat-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a chat locally and, when signed in, on the server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			chatID := args[0]

			for {
				err := a.sessions.Delete(a.ctx, chatID, a.authenticated)
				var retry *session.RetryableError
				if !errors.As(err, &retry) {
					if err != nil {
						return err
					}
					fmt.Printf("%s deleted %s\n", render.StatusIcon("success"), chatID)
					return nil
				}

				fmt.Fprintf(os.Stderr, "%s removed locally, server delete failed: %v\n", render.StatusIcon("warning"), retry.Err)
				if yes || !confirm("Retry server delete?") {
					return retry
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not prompt to retry a failed server delete")
	return cmd
}

func sessionsExportCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write all local chats to a .tar.gz backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			meta, err := backup.NewManager(a.store, a.storeKind).Export(a.ctx, args[0], description)
			if err != nil {
				return err
			}
			fmt.Printf("%s exported %d chats to %s\n", render.StatusIcon("success"), meta.Counts["sessions"], args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Note stored with the backup")
	return cmd
}

func sessionsImportCmd() *cobra.Command {
	var (
		merge bool
		yes   bool
		info  bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore chats from a backup made with export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			mgr := backup.NewManager(a.store, a.storeKind)

			if info {
				meta, err := mgr.List(args[0])
				if err != nil {
					return err
				}
				return printJSON(meta)
			}

			if !merge && !yes && !confirm("Replace all local chats with the backup?") {
				return errors.New("import cancelled (use --merge or --yes)")
			}
			meta, n, err := mgr.Import(a.ctx, args[0], merge)
			if err != nil {
				return err
			}
			fmt.Printf("%s imported %d chats from backup of %s (%d now stored)\n",
				render.StatusIcon("success"), meta.Counts["sessions"], meta.CreatedAt.Local().Format("2006-01-02 15:04"), n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "Keep existing chats, newer copy wins")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace without asking")
	cmd.Flags().BoolVar(&info, "info", false, "Only print the backup metadata")
	return cmd
}

// confirm asks a yes/no question on an interactive terminal. Without a
// terminal the answer is no.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
