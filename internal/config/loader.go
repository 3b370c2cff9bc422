package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr = ":8080"
	defaultCity       = "London"
	defaultPersona    = "david"
	defaultFrameSize  = 4096
)

var (
	validTimeBudgets = []string{"1h", "2-3h", "half-day", "full-day"}
	validLevels      = []string{"low", "medium", "high"}
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
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
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = defaultListenAddr
	}
	if cfg.Guide.City == "" {
		cfg.Guide.City = defaultCity
	}
	if cfg.Guide.Persona == "" {
		cfg.Guide.Persona = defaultPersona
	}
	if cfg.Audio.Device == "" {
		cfg.Audio.Device = DeviceNull
	}
	if cfg.Audio.FrameSize == 0 {
		cfg.Audio.FrameSize = defaultFrameSize
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Live agent availability
	if cfg.Live.APIKey == "" {
		slog.Warn("live.api_key is empty; sessions will fail to connect to the agent")
	}

	// Audio
	if !cfg.Audio.Device.IsValid() {
		errs = append(errs, fmt.Errorf("audio.device %q is invalid; valid values: null", cfg.Audio.Device))
	}
	if cfg.Audio.FrameSize < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d must be positive", cfg.Audio.FrameSize))
	} else if cfg.Audio.FrameSize > 65536 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d is out of range (1, 65536]", cfg.Audio.FrameSize))
	}

	// Preferences
	p := cfg.Guide.Preferences
	if p.TimeBudget != "" && !slices.Contains(validTimeBudgets, p.TimeBudget) {
		errs = append(errs, fmt.Errorf("guide.preferences.time_budget %q is invalid; valid values: 1h, 2-3h, half-day, full-day", p.TimeBudget))
	}
	if p.Mobility != "" && !slices.Contains(validLevels, p.Mobility) {
		errs = append(errs, fmt.Errorf("guide.preferences.mobility %q is invalid; valid values: low, medium, high", p.Mobility))
	}
	if p.Budget != "" && !slices.Contains(validLevels, p.Budget) {
		errs = append(errs, fmt.Errorf("guide.preferences.budget %q is invalid; valid values: low, medium, high", p.Budget))
	}

	// Geo
	if g := cfg.Geo; g != nil {
		if g.Lat < -90 || g.Lat > 90 {
			errs = append(errs, fmt.Errorf("geo.lat %.4f is out of range [-90, 90]", g.Lat))
		}
		if g.Lng < -180 || g.Lng > 180 {
			errs = append(errs, fmt.Errorf("geo.lng %.4f is out of range [-180, 180]", g.Lng))
		}
	}

	return errors.Join(errs...)
}
