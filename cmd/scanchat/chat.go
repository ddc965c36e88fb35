package main

import (
	"errors"
	"os"

	"golang.org/x/term"

	"github.com/joss/scanchat/internal/render"
	"github.com/joss/scanchat/internal/tui"
)

func runChat(a *app, chatID string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive chat needs a terminal, use 'scanchat send' instead")
	}
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	return tui.Run(a.ctx, tui.Options{
		Sender:        a.orchestrator,
		Sessions:      a.sessions,
		Renderer:      render.New(pretty),
		ChatID:        chatID,
		Authenticated: a.authenticated,
		WorkDir:       workDir,
		Notifier:      a.notifier,
	})
}
