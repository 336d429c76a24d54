package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/nlweb/chatpanel/internal/config"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		cfg   config.LogConfig
		debug bool
	}{
		{config.LogConfig{Level: "info", Format: config.LogFormatConsole}, false},
		{config.LogConfig{Level: "debug", Format: config.LogFormatJSON}, true},
		{config.LogConfig{Level: "debug", Format: config.LogFormatConsole, Development: true}, true},
	}
	for _, tt := range tests {
		logger, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", tt.cfg, err)
		}
		if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
			t.Errorf("New(%+v): debug enabled = %v, want %v", tt.cfg, got, tt.debug)
		}
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "shout"}); err == nil {
		t.Error("expected error for invalid level")
	}
}
