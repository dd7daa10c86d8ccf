package polygonize

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/octree"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("polygonize: invalid config")

// Config controls one polygonization run.
//
// Example YAML:
//
//	bounds: [[-10, -10, -10], [10, 10, 10]]
//	depth: 3
//	mode: adaptive
//	workers: 4
type Config struct {
	Bounds  [2][3]float64 `yaml:"bounds"`
	Depth   int           `yaml:"depth"`
	Mode    string        `yaml:"mode"`
	Workers int           `yaml:"workers"`
}

// DefaultConfig is the sphere demo setting: the cube [-10,10]^3 refined
// adaptively to depth 3 on one worker.
func DefaultConfig() Config {
	return Config{
		Bounds:  [2][3]float64{{-10, -10, -10}, {10, 10, 10}},
		Depth:   3,
		Mode:    octree.Adaptive.String(),
		Workers: 1,
	}
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("polygonize: reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("polygonize: parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Box returns the configured bounds.
func (c Config) Box() bbox.BBox {
	lo, hi := c.Bounds[0], c.Bounds[1]
	return bbox.FromCoords(lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}

// Policy returns the parsed subdivision mode.
func (c Config) Policy() (octree.Policy, error) {
	return octree.ParsePolicy(c.Mode)
}

// Validate checks the config without building anything.
func (c Config) Validate() error {
	b := c.Box()
	if !b.IsFinite() {
		return fmt.Errorf("%w: non-finite bounds %v", ErrInvalidConfig, c.Bounds)
	}
	if b.IsEmpty() {
		return fmt.Errorf("%w: empty bounds %s", ErrInvalidConfig, b)
	}
	if c.Depth < 0 || c.Depth > octree.MaxDepthLimit {
		return fmt.Errorf("%w: depth %d outside [0, %d]", ErrInvalidConfig, c.Depth, octree.MaxDepthLimit)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}
