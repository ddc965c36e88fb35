package selftest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// Environment describes the local runtime environment.
type Environment struct {
	HasTTY        bool
	Home          string
	EnvFileExists bool
	DataWritable  bool
	Warnings      []string
	Errors        []string
}

// Check validates the terminal and the scanchat home directory.
func Check(home, envFile string) *Environment {
	env := &Environment{
		HasTTY: term.IsTerminal(int(os.Stdout.Fd())),
		Home:   home,
	}

	if _, err := os.Stat(envFile); err == nil {
		env.EnvFileExists = true
	}

	env.checkWritable(filepath.Join(home, "data"))
	if !env.HasTTY {
		env.Warnings = append(env.Warnings, "stdout is not a terminal, interactive chat is unavailable")
	}
	return env
}

func (e *Environment) checkWritable(dir string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.Errors = append(e.Errors, fmt.Sprintf("cannot create %s: %v", dir, err))
		return
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		e.Errors = append(e.Errors, fmt.Sprintf("%s is not writable: %v", dir, err))
		return
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	e.DataWritable = true
}

// IsHealthy returns true if the client can persist sessions.
func (e *Environment) IsHealthy() bool {
	return len(e.Errors) == 0 && e.DataWritable
}

// Summary returns a human-readable summary.
func (e *Environment) Summary() string {
	var sb strings.Builder

	sb.WriteString("SCANCHAT ENVIRONMENT CHECK\n")
	sb.WriteString(strings.Repeat("─", 40) + "\n")

	ttyStatus := "No (one-shot commands only)"
	if e.HasTTY {
		ttyStatus = "Yes (interactive chat available)"
	}
	sb.WriteString(fmt.Sprintf("TTY:          %s\n", ttyStatus))
	sb.WriteString(fmt.Sprintf("Home:         %s\n", e.Home))

	envStatus := "Not found (using environment only)"
	if e.EnvFileExists {
		envStatus = "OK"
	}
	sb.WriteString(fmt.Sprintf(".env:         %s\n", envStatus))

	dataStatus := "NOT WRITABLE"
	if e.DataWritable {
		dataStatus = "OK"
	}
	sb.WriteString(fmt.Sprintf("Data dir:     %s\n", dataStatus))

	if len(e.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range e.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", w))
		}
	}

	if len(e.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, err := range e.Errors {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", err))
		}
	}

	sb.WriteString("\n")
	if e.IsHealthy() {
		sb.WriteString("Status: HEALTHY\n")
	} else {
		sb.WriteString("Status: UNHEALTHY - fix errors above\n")
	}

	return sb.String()
}

// QuickCheck returns a one-line status suitable for non-verbose output.
func (e *Environment) QuickCheck() string {
	if !e.IsHealthy() {
		return fmt.Sprintf("Environment unhealthy: %s", strings.Join(e.Errors, "; "))
	}

	mode := "one-shot"
	if e.HasTTY {
		mode = "interactive"
	}
	return fmt.Sprintf("mode:%s home:%s", mode, e.Home)
}
