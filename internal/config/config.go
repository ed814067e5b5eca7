package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ScriptPath   string `yaml:"-"`
	Live         bool   `yaml:"-"`
	BuildVersion string `yaml:"-"`

	Stage    Stage    `yaml:"stage"`
	Defaults Defaults `yaml:"defaults"`
	Export   Export   `yaml:"export"`
	MQTT     MQTT     `yaml:"mqtt"`
	Metrics  Metrics  `yaml:"metrics"`
}

type Stage struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
}

// Defaults are applied to new objects and keyframes
type Defaults struct {
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	FitBox     float64 `yaml:"fitBox"`
	MinSize    float64 `yaml:"minSize"`
	DurationMs int     `yaml:"durationMs"`
}

func (d Defaults) Duration() time.Duration {
	return time.Duration(d.DurationMs) * time.Millisecond
}

type Export struct {
	Output    string `yaml:"output"`
	FPS       int    `yaml:"fps"`
	Workers   int    `yaml:"workers"`
	Encoder   string `yaml:"encoder"`
	Quality   int    `yaml:"quality"`
	ShowStats bool   `yaml:"showStats"`
}

type MQTT struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"clientId"`
	Topic    string `yaml:"topic"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

// ExportParams are the per-run settings handed to the video encoder
type ExportParams struct {
	Width, Height int
	FPS           int
	Encoder       string
	Quality       int
}

func Default() *Config {
	return &Config{
		Stage: Stage{
			Width:      1280,
			Height:     720,
			Background: "#101014",
		},
		Defaults: Defaults{
			X:          300,
			Y:          300,
			FitBox:     200,
			MinSize:    20,
			DurationMs: 3000,
		},
		Export: Export{
			FPS:     30,
			Workers: runtime.NumCPU(),
		},
		MQTT: MQTT{
			ClientID: "stagekeys",
			Topic:    "stagekeys/frames",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as YAML.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var ErrInvalid = errors.New("invalid config")

func (c *Config) Validate() error {
	switch {
	case c.Stage.Width <= 0 || c.Stage.Height <= 0:
		return fmt.Errorf("%w: stage size %dx%d", ErrInvalid, c.Stage.Width, c.Stage.Height)
	case c.Defaults.FitBox <= 0:
		return fmt.Errorf("%w: fitBox %v", ErrInvalid, c.Defaults.FitBox)
	case c.Defaults.MinSize < 0:
		return fmt.Errorf("%w: minSize %v", ErrInvalid, c.Defaults.MinSize)
	case c.Defaults.DurationMs <= 0:
		return fmt.Errorf("%w: durationMs %d", ErrInvalid, c.Defaults.DurationMs)
	case c.Export.FPS <= 0:
		return fmt.Errorf("%w: fps %d", ErrInvalid, c.Export.FPS)
	}
	if c.Export.Workers <= 0 {
		c.Export.Workers = 1
	}
	return nil
}

// ExportParams derives encoder settings. ffmpeg needs even frame sizes for
// yuv420p, so odd stage sizes are rounded up.
func (c *Config) ExportParams() ExportParams {
	w, h := c.Stage.Width, c.Stage.Height
	if w%2 != 0 {
		w++
	}
	if h%2 != 0 {
		h++
	}
	return ExportParams{
		Width:   w,
		Height:  h,
		FPS:     c.Export.FPS,
		Encoder: c.Export.Encoder,
		Quality: c.Export.Quality,
	}
}
