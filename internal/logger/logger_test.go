package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewFileLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.Level = "warn"
	cfg.FilePath = filepath.Join(t.TempDir(), "ctatracks.log")
	log, err := New(cfg)
	if err != nil {
		t.Error(err)
		return
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("Level should be %s, but got %s", zerolog.WarnLevel, log.GetLevel())
	}
	log.Info().Msg("hidden")
	log.Warn().Str("line", "Red").Msg("visible")

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Error(err)
		return
	}
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Errorf("Info message should be filtered out, but got:\n%s", content)
	}
	if !strings.Contains(content, "visible") || !strings.Contains(content, `"line":"Red"`) {
		t.Errorf("Warn message should be written, but got:\n%s", content)
	}
}

func TestNewBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := New(cfg); err == nil {
		t.Errorf("Unknown level should be rejected")
	}
}

func TestNewNop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Console = false
	log, err := New(cfg)
	if err != nil {
		t.Error(err)
		return
	}
	if log.GetLevel() != zerolog.Disabled {
		t.Errorf("Logger without writers should be disabled, but got %s", log.GetLevel())
	}
}
