// Package config handles run configuration for the voxelizer.
//
// A run is described by two things: the four positional arguments, which
// become an immutable Run value, and an optional YAML tuning file whose path
// is taken from the VOXELIZER_CONFIG environment variable.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/atlasmap-sc/voxelizer/pkg/colormap"
)

// EnvConfigPath names the environment variable holding the tuning file path.
const EnvConfigPath = "VOXELIZER_CONFIG"

// Usage is printed on standard error when the arguments are wrong.
const Usage = "usage: voxelizer <voxel_size> <span> <input_file> <output_file>"

// ErrUsage is returned for a wrong argument count or unparsable arguments.
var ErrUsage = errors.New("invalid arguments")

// Zero cell quantization modes.
const (
	ZeroCellsNoData = "no_data"
	ZeroCellsLegacy = "legacy"
)

// Run holds the per-invocation parameters parsed from the command line.
// It is constructed once and passed by value to every stage.
type Run struct {
	VoxelSize  float64
	Span       int
	InputPath  string
	OutputPath string
}

// Config represents the tuning configuration.
type Config struct {
	Render   RenderConfig   `yaml:"render"`
	Quantize QuantizeConfig `yaml:"quantize"`
	Preview  PreviewConfig  `yaml:"preview"`
	Log      LogConfig      `yaml:"log"`
}

// RenderConfig contains rasterization settings.
type RenderConfig struct {
	// Workers bounds the number of slabs evaluated concurrently; 1 is sequential.
	Workers int `yaml:"workers"`
}

// QuantizeConfig contains 8-bit conversion settings.
type QuantizeConfig struct {
	ZeroCells string `yaml:"zero_cells"`
}

// PreviewConfig controls the optional projection image written next to the volume.
type PreviewConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Colormap string `yaml:"colormap"`
}

// LogConfig contains log output settings.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ParseArgs builds a Run from the positional arguments (program name excluded).
func ParseArgs(args []string) (Run, error) {
	if len(args) != 4 {
		return Run{}, fmt.Errorf("%w: expected 4 arguments, got %d", ErrUsage, len(args))
	}

	voxelSize, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return Run{}, fmt.Errorf("%w: voxel_size %q: %v", ErrUsage, args[0], err)
	}
	if voxelSize <= 0 {
		return Run{}, fmt.Errorf("%w: voxel_size must be positive, got %v", ErrUsage, voxelSize)
	}

	span, err := strconv.Atoi(args[1])
	if err != nil {
		return Run{}, fmt.Errorf("%w: span %q: %v", ErrUsage, args[1], err)
	}
	if span < 0 {
		return Run{}, fmt.Errorf("%w: span must not be negative, got %d", ErrUsage, span)
	}

	if args[2] == "" || args[3] == "" {
		return Run{}, fmt.Errorf("%w: empty file path", ErrUsage)
	}

	return Run{
		VoxelSize:  voxelSize,
		Span:       span,
		InputPath:  args[2],
		OutputPath: args[3],
	}, nil
}

// Load reads configuration from a YAML file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromEnv loads the tuning file named by VOXELIZER_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			Workers: runtime.NumCPU(),
		},
		Quantize: QuantizeConfig{
			ZeroCells: ZeroCellsNoData,
		},
		Preview: PreviewConfig{
			Enabled:  false,
			Colormap: "viridis",
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxAgeDays: 7,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Render.Workers <= 0 {
		cfg.Render.Workers = defaults.Render.Workers
	}
	if cfg.Quantize.ZeroCells == "" {
		cfg.Quantize.ZeroCells = defaults.Quantize.ZeroCells
	}
	if cfg.Preview.Colormap == "" {
		cfg.Preview.Colormap = defaults.Preview.Colormap
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = defaults.Log.MaxAgeDays
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Quantize.ZeroCells {
	case ZeroCellsNoData, ZeroCellsLegacy:
	default:
		return fmt.Errorf("quantize.zero_cells: unknown mode %q", c.Quantize.ZeroCells)
	}
	if c.Preview.Enabled {
		if _, ok := colormap.ByName(c.Preview.Colormap); !ok {
			return fmt.Errorf("preview.colormap: unknown colormap %q", c.Preview.Colormap)
		}
	}
	return nil
}
