package script

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownAction is returned for a step whose action the runner does not know.
var ErrUnknownAction = errors.New("script: unknown action")

// Script is an ordered list of editing steps replayed against a session
type Script struct {
	Version string `yaml:"version"`
	Steps   []Step `yaml:"steps"`
}

// Step is one command. Only the fields its action reads need to be set.
//
// Target and Path may reference earlier steps by name: "$logo" resolves to
// the object or keyframe created by the step with `as: logo`.
type Step struct {
	Action string `yaml:"action"`
	As     string `yaml:"as,omitempty"`
	Target string `yaml:"target,omitempty"`

	Path string `yaml:"path,omitempty"`
	Page int    `yaml:"page,omitempty"` // 1-based PDF page
	Text string `yaml:"text,omitempty"`
	Size int    `yaml:"size,omitempty"`

	X       float64 `yaml:"x,omitempty"`
	Y       float64 `yaml:"y,omitempty"`
	GrabX   float64 `yaml:"grabX,omitempty"`
	GrabY   float64 `yaml:"grabY,omitempty"`
	Width   float64 `yaml:"width,omitempty"`
	Height  float64 `yaml:"height,omitempty"`
	Degrees float64 `yaml:"degrees,omitempty"`
	Free    bool    `yaml:"free,omitempty"`
	Axis    string  `yaml:"axis,omitempty"`
	Edge    string  `yaml:"edge,omitempty"`
	Percent float64 `yaml:"percent,omitempty"`

	DurationMs int `yaml:"durationMs,omitempty"`
}

func (s Step) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// WriteScript writes a script to a YAML file
func WriteScript(sc *Script, path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadScript reads a script from a YAML file
func ReadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}

	return &sc, nil
}
