// Package config defines the costmap configuration file.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/costmap/costmap"
	"go.viam.com/costmap/layers/obstacle"
	"go.viam.com/costmap/observation"
	"go.viam.com/costmap/wavefront"
)

// Defaults for unset fields.
const (
	DefaultUpdateFrequencyHz = 5.0
	DefaultNeutralCost       = 50
	DefaultCostFactor        = 3.0
)

// Config is the top level configuration file.
type Config struct {
	ConfigFilePath string `yaml:"-"`

	LogLevel string              `yaml:"log_level,omitempty"`
	Costmap  Costmap             `yaml:"costmap"`
	Sources  []ObservationSource `yaml:"observation_sources"`
	Planner  Planner             `yaml:"planner"`
}

// Costmap describes the master raster and the obstacle layer on top of it.
type Costmap struct {
	SizeX             int      `yaml:"size_x"`
	SizeY             int      `yaml:"size_y"`
	Resolution        float64  `yaml:"resolution"`
	OriginX           float64  `yaml:"origin_x"`
	OriginY           float64  `yaml:"origin_y"`
	RollingWindow     bool     `yaml:"rolling_window"`
	TrackUnknownSpace bool     `yaml:"track_unknown_space"`
	// MaxObstacleHeight is the highest point the layer marks. Unset means
	// observation.DefaultMaxObstacleHeight; 0 marks only points at ground level.
	MaxObstacleHeight *float64 `yaml:"max_obstacle_height,omitempty"`
	UpdateFrequencyHz float64  `yaml:"update_frequency_hz"`
}

// ObservationSource configures one sensor feeding the obstacle layer.
type ObservationSource struct {
	Name     string `yaml:"name"`
	DataType string `yaml:"data_type"`

	// Marking defaults to true and Clearing to false.
	Marking  *bool `yaml:"marking,omitempty"`
	Clearing *bool `yaml:"clearing,omitempty"`

	ObstacleRange     float64 `yaml:"obstacle_range"`
	RaytraceRange     float64 `yaml:"raytrace_range"`
	MinObstacleHeight float64 `yaml:"min_obstacle_height"`
	// MaxObstacleHeight of 0 means observation.DefaultMaxObstacleHeight.
	MaxObstacleHeight float64 `yaml:"max_obstacle_height"`
	// ExpectedUpdateRate and ObservationKeepAlive are in seconds.
	ExpectedUpdateRate   float64 `yaml:"expected_update_rate"`
	ObservationKeepAlive float64 `yaml:"observation_keep_alive"`

	Attributes map[string]interface{} `yaml:"attributes,omitempty"`
}

// Planner tunes the wavefront expander.
type Planner struct {
	LethalCost   uint8   `yaml:"lethal_cost"`
	NeutralCost  uint8   `yaml:"neutral_cost"`
	CostFactor   float32 `yaml:"cost_factor"`
	AllowUnknown *bool   `yaml:"allow_unknown,omitempty"`
	// Cycles bounds each expansion; zero means twice the cell count.
	Cycles int `yaml:"cycles"`
}

// IsMarking reports whether the source marks obstacles.
func (s ObservationSource) IsMarking() bool {
	return s.Marking == nil || *s.Marking
}

// IsClearing reports whether the source clears free space.
func (s ObservationSource) IsClearing() bool {
	return s.Clearing != nil && *s.Clearing
}

// BufferConfig returns the observation buffer settings for the source.
func (s ObservationSource) BufferConfig() observation.BufferConfig {
	return observation.BufferConfig{
		ObstacleRange:      s.ObstacleRange,
		RaytraceRange:      s.RaytraceRange,
		MinObstacleHeight:  s.MinObstacleHeight,
		MaxObstacleHeight:  s.MaxObstacleHeight,
		ExpectedUpdateRate: seconds(s.ExpectedUpdateRate),
		KeepAlive:          seconds(s.ObservationKeepAlive),
	}.WithDefaults()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// UpdateInterval is the period of the map update loop.
func (c Costmap) UpdateInterval() time.Duration {
	hz := c.UpdateFrequencyHz
	if hz <= 0 {
		hz = DefaultUpdateFrequencyHz
	}
	return time.Duration(float64(time.Second) / hz)
}

// LayerConfig returns the obstacle layer settings.
func (c Costmap) LayerConfig() obstacle.Config {
	maxHeight := observation.DefaultMaxObstacleHeight
	if c.MaxObstacleHeight != nil {
		maxHeight = *c.MaxObstacleHeight
	}
	return obstacle.Config{
		RollingWindow:     c.RollingWindow,
		TrackUnknownSpace: c.TrackUnknownSpace,
		MaxObstacleHeight: maxHeight,
	}
}

// DefaultValue is the value the master raster starts at.
func (c Costmap) DefaultValue() uint8 {
	if c.TrackUnknownSpace {
		return costmap.NoInformation
	}
	return costmap.FreeSpace
}

// Options returns the expander tuning, with defaults for unset fields.
func (p Planner) Options() wavefront.Options {
	opts := wavefront.DefaultOptions()
	if p.LethalCost != 0 {
		opts.LethalCost = p.LethalCost
	}
	if p.NeutralCost != 0 {
		opts.NeutralCost = p.NeutralCost
	}
	if p.CostFactor != 0 {
		opts.CostFactor = p.CostFactor
	}
	if p.AllowUnknown != nil {
		opts.AllowUnknown = *p.AllowUnknown
	}
	return opts
}

// CyclesFor returns the expansion budget for an nx by ny raster.
func (p Planner) CyclesFor(nx, ny int) int {
	if p.Cycles > 0 {
		return p.Cycles
	}
	return 2 * nx * ny
}

// Validate checks the configuration, naming the offending field by its path.
func (c *Config) Validate(path string) error {
	if err := c.Costmap.Validate(joinPath(path, "costmap")); err != nil {
		return err
	}
	seen := map[string]bool{}
	for i, src := range c.Sources {
		srcPath := joinPath(path, fmt.Sprintf("observation_sources.%d", i))
		if err := src.Validate(srcPath); err != nil {
			return err
		}
		if seen[src.Name] {
			return goutils.NewConfigValidationError(srcPath, errors.Errorf("duplicate observation source %q", src.Name))
		}
		seen[src.Name] = true
	}
	return c.Planner.Validate(joinPath(path, "planner"))
}

// Validate checks the raster geometry.
func (c *Costmap) Validate(path string) error {
	if c.SizeX <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "size_x")
	}
	if c.SizeY <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "size_y")
	}
	if c.Resolution <= 0 || math.IsNaN(c.Resolution) || math.IsInf(c.Resolution, 0) {
		return goutils.NewConfigValidationFieldRequiredError(path, "resolution")
	}
	if c.UpdateFrequencyHz < 0 {
		return goutils.NewConfigValidationError(path, errors.New("update_frequency_hz cannot be negative"))
	}
	if c.MaxObstacleHeight != nil && *c.MaxObstacleHeight < 0 {
		return goutils.NewConfigValidationError(path, errors.New("max_obstacle_height cannot be negative"))
	}
	return nil
}

// Validate checks a source. Only registered data types are accepted.
func (s *ObservationSource) Validate(path string) error {
	if s.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if s.DataType == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "data_type")
	}
	if observation.LookupDataType(observation.DataType(s.DataType)) == nil {
		return goutils.NewConfigValidationError(path, errors.Errorf(
			"only %v data types are supported, got %q", observation.SupportedDataTypes(), s.DataType))
	}
	if !s.IsMarking() && !s.IsClearing() {
		return goutils.NewConfigValidationError(path, errors.New("source must be marking, clearing, or both"))
	}
	if s.ObstacleRange < 0 || s.RaytraceRange < 0 {
		return goutils.NewConfigValidationError(path, errors.New("ranges cannot be negative"))
	}
	if s.MaxObstacleHeight != 0 && s.MaxObstacleHeight < s.MinObstacleHeight {
		return goutils.NewConfigValidationError(path,
			errors.New("max_obstacle_height cannot be lower than min_obstacle_height"))
	}
	if s.ExpectedUpdateRate < 0 || s.ObservationKeepAlive < 0 {
		return goutils.NewConfigValidationError(path, errors.New("durations cannot be negative"))
	}
	return nil
}

// Validate checks the expander tuning.
func (p *Planner) Validate(path string) error {
	opts := p.Options()
	if opts.NeutralCost >= opts.LethalCost {
		return goutils.NewConfigValidationError(path, errors.New("neutral_cost must be lower than lethal_cost"))
	}
	if opts.CostFactor < 0 {
		return goutils.NewConfigValidationError(path, errors.New("cost_factor cannot be negative"))
	}
	if p.Cycles < 0 {
		return goutils.NewConfigValidationError(path, errors.New("cycles cannot be negative"))
	}
	return nil
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
