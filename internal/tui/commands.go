package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joss/scanchat/internal/analysis"
	"github.com/joss/scanchat/internal/metrics"
)

// SlashCommand represents a slash command handler
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(m *Model, args string) (string, tea.Cmd)
}

// builtinCommands returns all available slash commands
func builtinCommands() map[string]SlashCommand {
	return map[string]SlashCommand{
		"help": {
			Name:        "help",
			Description: "Show available commands",
			Handler:     cmdHelp,
		},
		"new": {
			Name:        "new",
			Description: "Start a new chat",
			Handler:     cmdNew,
		},
		"sessions": {
			Name:        "sessions",
			Description: "Browse saved chats",
			Handler:     cmdSessions,
		},
		"var": {
			Name:        "var",
			Description: "Show one analysis variable of this chat",
			Handler:     cmdVar,
		},
		"vars": {
			Name:        "vars",
			Description: "List the analysis variables you can ask for",
			Handler:     cmdVars,
		},
		"stats": {
			Name:        "stats",
			Description: "Show counters for this run",
			Handler:     cmdStats,
		},
		"detach": {
			Name:        "detach",
			Description: "Drop the attached file",
			Handler:     cmdDetach,
		},
	}
}

// isSlashCommand checks if input starts with /
func isSlashCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// executeSlashCommand parses and runs a slash command
func executeSlashCommand(m *Model, input string) (string, tea.Cmd) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil
	}

	parts := strings.SplitN(input[1:], " ", 2)
	name := strings.ToLower(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	cmd, ok := builtinCommands()[name]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s (try /help)", name), nil
	}
	return cmd.Handler(m, args)
}

func cmdHelp(m *Model, args string) (string, tea.Cmd) {
	cmds := builtinCommands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  /%-10s %s\n", name, cmds[name].Description)
	}
	sb.WriteString("\nKeys: @ attach file, enter send, ctrl+s sessions, ctrl+c quit")
	return sb.String(), nil
}

func cmdNew(m *Model, args string) (string, tea.Cmd) {
	m.chatID = ""
	m.thread = nil
	m.attached = ""
	m.err = nil
	return "", nil
}

func cmdSessions(m *Model, args string) (string, tea.Cmd) {
	m.view = viewSessions
	m.selectedIdx = 0
	return "", m.loadSessions()
}

func cmdVar(m *Model, args string) (string, tea.Cmd) {
	if args == "" {
		return "Usage: /var <name>", nil
	}
	if m.chatID == "" {
		return "No analysis in this chat yet", nil
	}
	view := m.opts.Sender.View(context.Background(), m.chatID)
	val, ok := analysis.GetVariableValue(args, view)
	if !ok {
		return fmt.Sprintf("%s: not available", args), nil
	}
	return m.opts.Renderer.Variable(args, val), nil
}

func cmdVars(m *Model, args string) (string, tea.Cmd) {
	return strings.Join(analysis.VariableNames(), "\n"), nil
}

func cmdDetach(m *Model, args string) (string, tea.Cmd) {
	if m.attached == "" {
		return "No file attached", nil
	}
	m.attached = ""
	return "", nil
}

func cmdStats(m *Model, args string) (string, tea.Cmd) {
	snap := metrics.Global().Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%-40s %d\n", strings.TrimPrefix(name, "scanchat_"), snap[name])
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
