package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, layered over [Default],
// and returns a validated [Config]. It is a convenience wrapper around
// [LoadFromReader] and [Validate].
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Analysis.ReasoningDepth != "" && !cfg.Analysis.ReasoningDepth.IsValid() {
		errs = append(errs, fmt.Errorf("analysis.reasoning_depth %q is invalid; valid values: concise, detailed", cfg.Analysis.ReasoningDepth))
	}
	if cfg.Audio.FrameSize < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d must not be negative", cfg.Audio.FrameSize))
	}
	if cfg.History.Limit < 0 {
		errs = append(errs, fmt.Errorf("history.limit %d must not be negative", cfg.History.Limit))
	}
	if cfg.Gemini.AnalysisModel == "" {
		errs = append(errs, errors.New("gemini.analysis_model is required"))
	}
	if cfg.Gemini.LiveModel == "" {
		errs = append(errs, errors.New("gemini.live_model is required"))
	}

	return errors.Join(errs...)
}
