package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found. Note that
// engine.dict_dir is only checked for presence here; whether the directory
// actually holds a usable dictionary is the engine's call at init time.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Engine.DictDir == "" {
		errs = append(errs, fmt.Errorf("engine.dict_dir is required"))
	}
	if cfg.Engine.CPUNumThreads < 0 {
		errs = append(errs, fmt.Errorf("engine.cpu_num_threads must be >= 0, got %d", cfg.Engine.CPUNumThreads))
	}
	for i, m := range cfg.Engine.VoiceModels {
		if m == "" {
			errs = append(errs, fmt.Errorf("engine.voice_models[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}
