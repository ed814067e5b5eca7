package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagekeys.yaml")
	data := `
stage:
  width: 641
  background: "#ff0000"
defaults:
  durationMs: 1500
export:
  fps: 24
mqtt:
  url: tcp://localhost:1883
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stage.Width != 641 || cfg.Stage.Height != 720 {
		t.Errorf("stage = %+v", cfg.Stage)
	}
	if cfg.Defaults.Duration() != 1500*time.Millisecond || cfg.Defaults.FitBox != 200 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.MQTT.URL != "tcp://localhost:1883" || cfg.MQTT.Topic != "stagekeys/frames" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	p := cfg.ExportParams()
	if p.Width != 642 || p.Height != 720 || p.FPS != 24 {
		t.Errorf("export params = %+v", p)
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Export.Output = "out.mp4"
	cfg.ScriptPath = "ignored.yaml"

	if err := Write(cfg, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	read, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if read.Export.Output != "out.mp4" {
		t.Errorf("output = %q", read.Export.Output)
	}
	if read.ScriptPath != "" {
		t.Error("runtime-only field was persisted")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("stage: [oops"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Stage.Width = 0 }},
		{"zero fit box", func(c *Config) { c.Defaults.FitBox = 0 }},
		{"negative min size", func(c *Config) { c.Defaults.MinSize = -1 }},
		{"zero duration", func(c *Config) { c.Defaults.DurationMs = 0 }},
		{"zero fps", func(c *Config) { c.Export.FPS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	cfg := Default()
	cfg.Export.Workers = 0
	if err := cfg.Validate(); err != nil || cfg.Export.Workers != 1 {
		t.Errorf("workers not defaulted: %v, %d", err, cfg.Export.Workers)
	}
}
