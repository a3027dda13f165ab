// Package config loads the collision settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Broad-phase strategy names accepted in broad_phase.
const (
	StrategyNone = "none"
	StrategyGrid = "grid"
	StrategyGPU  = "gpu"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	// Margin is the collision tolerance given to every shape built from a
	// scene file.
	Margin     float32    `yaml:"margin"`
	BroadPhase string     `yaml:"broad_phase"`
	Workers    int        `yaml:"workers"`
	Grid       GridConfig `yaml:"grid"`
	GPU        GPUConfig  `yaml:"gpu"`
}

type GridConfig struct {
	CellSize        float32 `yaml:"cell_size"`
	MaxCellsPerBody int     `yaml:"max_cells_per_body"`
}

type GPUConfig struct {
	// Threshold is the body count at which overlap tests move to the GPU.
	Threshold  int `yaml:"threshold"`
	MaxObjects int `yaml:"max_objects"`
}

func Default() Config {
	return Config{
		Margin:     0.04,
		BroadPhase: StrategyNone,
		Workers:    1,
		Grid: GridConfig{
			CellSize:        5,
			MaxCellsPerBody: 4096,
		},
		GPU: GPUConfig{
			Threshold:  750,
			MaxObjects: 50000,
		},
	}
}

// Load reads and validates a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default, so omitted keys keep their default
// values. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Margin < 0:
		return fmt.Errorf("%w: margin %v must not be negative", ErrInvalid, c.Margin)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalid, c.Workers)
	case c.Grid.CellSize <= 0:
		return fmt.Errorf("%w: grid.cell_size %v must be positive", ErrInvalid, c.Grid.CellSize)
	case c.Grid.MaxCellsPerBody < 1:
		return fmt.Errorf("%w: grid.max_cells_per_body %d must be at least 1", ErrInvalid, c.Grid.MaxCellsPerBody)
	case c.GPU.Threshold < 1:
		return fmt.Errorf("%w: gpu.threshold %d must be at least 1", ErrInvalid, c.GPU.Threshold)
	case c.GPU.MaxObjects < 2:
		return fmt.Errorf("%w: gpu.max_objects %d must be at least 2", ErrInvalid, c.GPU.MaxObjects)
	}
	switch c.BroadPhase {
	case StrategyNone, StrategyGrid, StrategyGPU:
		return nil
	}
	return fmt.Errorf("%w: unknown broad_phase %q", ErrInvalid, c.BroadPhase)
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
