package selftest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	home := t.TempDir()
	envFile := filepath.Join(home, ".env")
	if err := os.WriteFile(envFile, []byte("SCANCHAT_TOKEN=x\n"), 0600); err != nil {
		t.Fatal(err)
	}

	env := Check(home, envFile)

	if !env.EnvFileExists {
		t.Error("EnvFileExists should be true")
	}
	if !env.DataWritable {
		t.Errorf("data dir should be writable, errors: %v", env.Errors)
	}
	if !env.IsHealthy() {
		t.Error("environment should be healthy")
	}
}

func TestCheckMissingEnvFile(t *testing.T) {
	home := t.TempDir()
	env := Check(home, filepath.Join(home, ".env"))

	if env.EnvFileExists {
		t.Error("EnvFileExists should be false")
	}
}

func TestEnvironmentSummary(t *testing.T) {
	env := &Environment{
		HasTTY:       false,
		Home:         "/home/u/.scanchat",
		DataWritable: true,
		Warnings:     []string{"stdout is not a terminal"},
	}

	summary := env.Summary()

	for _, want := range []string{
		"SCANCHAT ENVIRONMENT CHECK",
		"/home/u/.scanchat",
		"one-shot commands only",
		"stdout is not a terminal",
		"Status: HEALTHY",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q", want)
		}
	}
}

func TestQuickCheck(t *testing.T) {
	tests := []struct {
		name     string
		env      *Environment
		contains string
	}{
		{
			name:     "healthy one-shot",
			env:      &Environment{DataWritable: true, Home: "/h"},
			contains: "mode:one-shot",
		},
		{
			name:     "healthy interactive",
			env:      &Environment{DataWritable: true, HasTTY: true},
			contains: "mode:interactive",
		},
		{
			name:     "unhealthy",
			env:      &Environment{Errors: []string{"disk full"}},
			contains: "unhealthy: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.env.QuickCheck()
			if !strings.Contains(got, tt.contains) {
				t.Errorf("QuickCheck() = %q, want to contain %q", got, tt.contains)
			}
		})
	}
}

func TestIsHealthy(t *testing.T) {
	if (&Environment{}).IsHealthy() {
		t.Error("unwritable data dir should be unhealthy")
	}
	if !(&Environment{DataWritable: true}).IsHealthy() {
		t.Error("writable data dir should be healthy")
	}
	if (&Environment{DataWritable: true, Errors: []string{"x"}}).IsHealthy() {
		t.Error("errors should make it unhealthy")
	}
}
