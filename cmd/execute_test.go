package cmd

import (
	"context"
	"log/slog"
	"testing"
)

func TestIsExit(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"exit", true},
		{"EXIT", true},
		{"quit", true},
		{"/exit", true},
		{"/quit", true},
		{"tạm biệt", false},
		{"exit now", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isExit(tt.input); got != tt.want {
			t.Errorf("isExit(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitLogger_DebugEnv(t *testing.T) {
	t.Setenv("DEBUG", "1")
	logger := initLogger()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG set but debug level disabled")
	}
}

func TestInitLogger_Default(t *testing.T) {
	t.Setenv("DEBUG", "")
	logger := initLogger()
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level enabled without DEBUG")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info level disabled by default")
	}
}
