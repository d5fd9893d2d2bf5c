// Package config loads the runtime configuration of the executable from a TOML or
// YAML file layered over built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Window   Window   `toml:"window" yaml:"window"`
	Renderer Renderer `toml:"renderer" yaml:"renderer"`
	Engine   Engine   `toml:"engine" yaml:"engine"`
	Camera   Camera   `toml:"camera" yaml:"camera"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// Window configures the native window.
type Window struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// Renderer configures the renderer.
type Renderer struct {
	VSync            bool `toml:"vsync" yaml:"vsync"`
	SoftwareRenderer bool `toml:"software_renderer" yaml:"software_renderer"`
	Overlay          bool `toml:"overlay" yaml:"overlay"`
}

// Engine configures the update and render loops.
type Engine struct {
	// TickRate is the update rate in ticks per second.
	TickRate float64 `toml:"tick_rate" yaml:"tick_rate"`

	Profiling bool `toml:"profiling" yaml:"profiling"`

	// FrameLimit caps the render loop in frames per second; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
}

// Camera configures the orbit camera. FOV is the horizontal field of view in degrees.
type Camera struct {
	Radius float32 `toml:"radius" yaml:"radius"`
	FOV    float32 `toml:"fov" yaml:"fov"`
	Near   float32 `toml:"near" yaml:"near"`
	Far    float32 `toml:"far" yaml:"far"`
}

// Default returns the built-in configuration.
//
// Returns:
//   - Config: the default values
func Default() Config {
	return Config{
		Window: Window{
			Title:  "oxy-frame",
			Width:  1280,
			Height: 720,
		},
		Renderer: Renderer{
			VSync: true,
		},
		Engine: Engine{
			TickRate: 60,
		},
		Camera: Camera{
			Radius: 5,
			FOV:    90,
			Near:   0.01,
			Far:    1000,
		},
		LogLevel: "info",
	}
}

// Load reads the file at path over the defaults. The format is chosen by extension:
// .toml, or .yaml and .yml. An empty path returns the defaults.
//
// Parameters:
//   - path: the config file, or "" for defaults only
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read or decoded, or has an unknown extension
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		unmarshal = toml.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return cfg, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports values no component can run with.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0 {
		return fmt.Errorf("engine rates must not be negative")
	}
	if c.Camera.Radius <= 0 {
		return fmt.Errorf("camera radius must be positive, got %v", c.Camera.Radius)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return fmt.Errorf("camera fov must be between 0 and 180 degrees, got %v", c.Camera.FOV)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera planes must satisfy 0 < near < far, got %v and %v", c.Camera.Near, c.Camera.Far)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level is info.
//
// Returns:
//   - slog.Level: the parsed level
//   - error: error if the level name is unknown
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
