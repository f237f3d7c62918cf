package cmd

import (
	"testing"
)

func TestCommandRegistration(t *testing.T) {
	want := map[string]bool{
		"serve":   false,
		"ingest":  false,
		"ask":     false,
		"version": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("LECTERN_LOG_LEVEL", "debug")
	if got := logLevel(); got.String() != "DEBUG" {
		t.Errorf("logLevel() = %v, want DEBUG", got)
	}

	t.Setenv("LECTERN_LOG_LEVEL", "nonsense")
	if got := logLevel(); got.String() != "INFO" {
		t.Errorf("logLevel() = %v, want INFO", got)
	}
}
