// Package config is the YAML configuration shared by the desktop app and the
// CLI. A config is built once at startup and passed explicitly to the
// workspace.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Kernel   KernelConfig   `yaml:"kernel"`
	CSG      CSGConfig      `yaml:"csg"`
	Engine   EngineConfig   `yaml:"engine"`
	Boolean  BooleanConfig  `yaml:"boolean"`
	Viewport ViewportConfig `yaml:"viewport"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type KernelConfig struct {
	// MeshCells is the marching cubes resolution along the longest axis.
	MeshCells int `yaml:"mesh_cells"`
}

type CSGConfig struct {
	Epsilon float64 `yaml:"epsilon"`
}

type EngineConfig struct {
	EvalTimeout time.Duration `yaml:"eval_timeout"`
}

type BooleanConfig struct {
	// Timeout bounds one difference group's processing.
	Timeout time.Duration `yaml:"timeout"`
}

type ViewportConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FOVDegrees float64 `yaml:"fov_degrees"`
}

// Default returns a complete, valid configuration.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "console"},
		Kernel:   KernelConfig{MeshCells: 64},
		CSG:      CSGConfig{Epsilon: 1e-5},
		Engine:   EngineConfig{EvalTimeout: 5 * time.Second},
		Boolean:  BooleanConfig{Timeout: 60 * time.Second},
		Viewport: ViewportConfig{Width: 1280, Height: 800, FOVDegrees: 45},
	}
}

// Load reads path and overlays it on Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays YAML data on Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the system cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Kernel.MeshCells <= 0 {
		errs = append(errs, fmt.Errorf("kernel.mesh_cells must be positive, got %d", c.Kernel.MeshCells))
	}
	if c.CSG.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("csg.epsilon must not be negative, got %g", c.CSG.Epsilon))
	}
	if c.Engine.EvalTimeout <= 0 {
		errs = append(errs, errors.New("engine.eval_timeout must be positive"))
	}
	if c.Boolean.Timeout <= 0 {
		errs = append(errs, errors.New("boolean.timeout must be positive"))
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport size must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height))
	}
	if c.Viewport.FOVDegrees <= 0 || c.Viewport.FOVDegrees >= 180 {
		errs = append(errs, fmt.Errorf("viewport.fov_degrees must be in (0, 180), got %g", c.Viewport.FOVDegrees))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
