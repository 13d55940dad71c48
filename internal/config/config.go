// Package config loads the editor and renderer settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Engine names.
const (
	EngineGo     = "go"
	EngineOpenCV = "opencv"
)

// Config holds runtime configuration for editing and rendering.
// Fields may be loaded from a TOML file and overridden by command-line flags.
type Config struct {
	// Editing
	ScaleStep  float64 `toml:"scale_step"`
	RotateStep float64 `toml:"rotate_step"`

	// Rendering
	BlendMode      string `toml:"blend_mode"`
	AlphaThreshold int    `toml:"alpha_threshold"`
	Interpolation  string `toml:"interpolation"`
	Background     string `toml:"background"`
	Engine         string `toml:"engine"`

	// Export
	JPEGQuality int `toml:"jpeg_quality"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		ScaleStep:      1.1,
		RotateStep:     5,
		BlendMode:      "hard",
		AlphaThreshold: 0,
		Interpolation:  "nearest",
		Background:     "#ffffff",
		Engine:         EngineGo,
		JPEGQuality:    95,
	}
}

// Validate clamps/normalizes values to safe ranges. It returns an error
// only for values that cannot be repaired.
func (c *Config) Validate() error {
	if c.ScaleStep <= 1 {
		c.ScaleStep = 1.1
	}
	if c.RotateStep <= 0 || c.RotateStep >= 360 {
		c.RotateStep = 5
	}
	if c.AlphaThreshold < 0 {
		c.AlphaThreshold = 0
	}
	if c.AlphaThreshold > 254 {
		c.AlphaThreshold = 254
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 95
	}

	c.BlendMode = strings.ToLower(strings.TrimSpace(c.BlendMode))
	c.Interpolation = strings.ToLower(strings.TrimSpace(c.Interpolation))
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	if c.BlendMode == "" {
		c.BlendMode = "hard"
	}
	if c.Interpolation == "" {
		c.Interpolation = "nearest"
	}
	if c.Engine == "" {
		c.Engine = EngineGo
	}

	var errs []error
	if c.BlendMode != "hard" && c.BlendMode != "over" {
		errs = append(errs, fmt.Errorf("blend_mode %q: want hard or over", c.BlendMode))
	}
	if c.Interpolation != "nearest" && c.Interpolation != "bilinear" {
		errs = append(errs, fmt.Errorf("interpolation %q: want nearest or bilinear", c.Interpolation))
	}
	if c.Engine != EngineGo && c.Engine != EngineOpenCV {
		errs = append(errs, fmt.Errorf("engine %q: want go or opencv", c.Engine))
	}
	if _, err := ParseColor(c.Background); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BackgroundColor returns the parsed background, white if it is invalid.
func (c *Config) BackgroundColor() color.NRGBA {
	bg, err := ParseColor(c.Background)
	if err != nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return bg
}

// ParseColor parses "#rrggbb" or "rrggbb".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("background %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("background %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "defect-synth.toml"
	}
	return filepath.Join(dir, "defect-synth", "config.toml")
}

// Load attempts to read configuration from the given TOML file path. If the
// file does not exist it returns DefaultConfig(). On a parse error it
// returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given path in TOML format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
