package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/joss/scanchat/internal/analysis"
	"github.com/joss/scanchat/internal/chat"
	"github.com/joss/scanchat/internal/render"
)

func sendCmd() *cobra.Command {
	var (
		pattern string
		chatID  string
	)

	cmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send a message or upload files for analysis",
		Long: `Send one message to a chat, or upload files for analysis.

--file accepts a path or a glob (** matches across directories). Each
matched file is uploaded in turn; without --chat every upload starts
its own chat.

Examples:
  scanchat send --file app.apk
  scanchat send --file 'samples/**/*.apk'
  scanchat send --chat 3f9c2a1b7d4e "what is vtDetectionRate"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) > 0 {
				text = args[0]
			}

			if pattern == "" {
				return sendOne(chat.Input{Text: text}, chatID)
			}

			files, err := expandFiles(pattern)
			if err != nil {
				return err
			}
			var failed int
			for _, path := range files {
				if err := sendFile(path, text, chatID); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pattern, "file", "f", "", "File path or glob to upload")
	cmd.Flags().StringVarP(&chatID, "chat", "c", "", "Chat id to continue")
	return cmd
}

// expandFiles resolves a path or doublestar glob to regular files.
func expandFiles(pattern string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

func sendFile(path, text, chatID string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return sendOne(chat.Input{
		Text: text,
		File: &chat.File{Name: filepath.Base(path), Size: info.Size(), Reader: f},
	}, chatID)
}

func sendOne(in chat.Input, chatID string) error {
	a := current
	out, err := a.orchestrator.Send(a.ctx, in, chatID, a.authenticated)
	if err != nil {
		return describeSendError(err)
	}

	if out.Session != nil {
		fmt.Printf("chat %s\n", out.Session.ChatID)
	}
	fmt.Print(a.renderer.Message(out.Reply))
	if out.SaveErr != nil {
		fmt.Fprintf(os.Stderr, "%s reply not saved to history: %v\n", render.StatusIcon("warning"), out.SaveErr)
	}
	if out.Err != nil {
		return out.Err
	}
	return nil
}

func describeSendError(err error) error {
	switch {
	case errors.Is(err, chat.ErrTooLong):
		return fmt.Errorf("message is too long (max %d characters)", chat.MaxTextRunes)
	case errors.Is(err, chat.ErrEmptyInput):
		return errors.New("nothing to send: give a message or --file")
	}
	return err
}

func varCmd() *cobra.Command {
	var (
		chatID string
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "var <name>",
		Short: "Print one analysis variable of a chat without asking the server",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				fmt.Println(strings.Join(analysis.VariableNames(), "\n"))
				return nil
			}
			if chatID == "" {
				return errors.New("--chat is required")
			}

			a := current
			if _, err := a.sessions.Get(a.ctx, chatID); err != nil {
				return err
			}
			val, ok := analysis.GetVariableValue(args[0], a.orchestrator.View(a.ctx, chatID))
			if !ok {
				return fmt.Errorf("%s is not available in chat %s", args[0], chatID)
			}
			fmt.Println(a.renderer.Variable(args[0], val))
			return nil
		},
	}

	cmd.Flags().StringVarP(&chatID, "chat", "c", "", "Chat id holding the analysis")
	cmd.Flags().BoolVar(&list, "list", false, "List the variable names")
	return cmd
}

func chatCmd() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(current, chatID)
		},
	}

	cmd.Flags().StringVarP(&chatID, "chat", "c", "", "Chat id to resume")
	return cmd
}
