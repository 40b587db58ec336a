package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt      = 1.0 / 60
	DefaultSteps   = 600
	DefaultThreads = 1
	DefaultDensity = 10.0
	DefaultPVDPort = 5425
)

var (
	ErrNoActors     = errors.New("config: scenario has no actors")
	ErrInvalidActor = errors.New("config: invalid actor")
)

type Config struct {
	Scenario string        `yaml:"scenario"`
	Threads  int           `yaml:"threads"`
	Solver   string        `yaml:"solver"`
	Dt       float64       `yaml:"dt"`
	Steps    int           `yaml:"steps"`
	Seed     int64         `yaml:"seed"`
	Gravity  [3]float64    `yaml:"gravity"`
	PVD      PVDConfig     `yaml:"pvd"`
	Actors   []ActorConfig `yaml:"actors"`
	// Params feed procedural scenarios such as "tower" and "rain".
	Params map[string]float64 `yaml:"params,omitempty"`
}

type PVDConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// ActorConfig describes one actor, or Count copies of it offset by Spacing.
type ActorConfig struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"`
	Shape       string          `yaml:"shape"`
	Radius      float64         `yaml:"radius,omitempty"`
	HalfHeight  float64         `yaml:"half_height,omitempty"`
	HalfExtents [3]float64      `yaml:"half_extents,omitempty"`
	Plane       [4]float64      `yaml:"plane,omitempty"`
	Position    [3]float64      `yaml:"position"`
	Rotation    [3]float64      `yaml:"rotation,omitempty"`
	Density     float64         `yaml:"density,omitempty"`
	Velocity    [3]float64      `yaml:"velocity,omitempty"`
	Material    *MaterialConfig `yaml:"material,omitempty"`
	Count       int             `yaml:"count,omitempty"`
	Spacing     [3]float64      `yaml:"spacing,omitempty"`
}

type MaterialConfig struct {
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
	Restitution     float64 `yaml:"restitution"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario: "actors",
		Threads:  DefaultThreads,
		Solver:   "pgs",
		Dt:       DefaultDt,
		Steps:    DefaultSteps,
		Gravity:  [3]float64{0, -9.81, 0},
		PVD:      PVDConfig{Host: "127.0.0.1", Port: DefaultPVDPort},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be tweaked by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Actors = make([]ActorConfig, len(c.Actors))
	for i, a := range c.Actors {
		if a.Material != nil {
			m := *a.Material
			a.Material = &m
		}
		out.Actors[i] = a
	}
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func (c *Config) GravityVec() mgl64.Vec3 { return mgl64.Vec3(c.Gravity) }

func (c *Config) Param(name string, def float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}

// Validate checks the step settings and, for the "actors" scenario, every
// actor description.
func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("config: dt must be positive, got %v", c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("config: steps must not be negative, got %d", c.Steps)
	}
	if c.Threads < 0 {
		return fmt.Errorf("config: threads must not be negative, got %d", c.Threads)
	}
	switch c.Solver {
	case "", "pgs", "tgs":
	default:
		return fmt.Errorf("config: unknown solver %q", c.Solver)
	}
	if c.Scenario != "" && c.Scenario != "actors" {
		return nil
	}
	if len(c.Actors) == 0 {
		return ErrNoActors
	}
	for i, a := range c.Actors {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("actor %d (%s): %w", i, a.Name, err)
		}
	}
	return nil
}

func (a ActorConfig) Validate() error {
	switch a.Kind {
	case "static", "dynamic", "kinematic":
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidActor, a.Kind)
	}
	switch a.Shape {
	case "sphere":
		if !(a.Radius > 0) {
			return fmt.Errorf("%w: sphere radius %v", ErrInvalidActor, a.Radius)
		}
	case "capsule":
		if !(a.Radius > 0) || a.HalfHeight < 0 {
			return fmt.Errorf("%w: capsule %v/%v", ErrInvalidActor, a.Radius, a.HalfHeight)
		}
	case "box":
		h := a.HalfExtents
		if !(h[0] > 0 && h[1] > 0 && h[2] > 0) {
			return fmt.Errorf("%w: box half extents %v", ErrInvalidActor, h)
		}
	case "plane":
		if a.Kind != "static" {
			return fmt.Errorf("%w: planes must be static", ErrInvalidActor)
		}
		if a.Plane[0] == 0 && a.Plane[1] == 0 && a.Plane[2] == 0 {
			return fmt.Errorf("%w: plane normal is zero", ErrInvalidActor)
		}
	default:
		return fmt.Errorf("%w: shape %q", ErrInvalidActor, a.Shape)
	}
	if a.Density < 0 || a.Count < 0 {
		return fmt.Errorf("%w: negative density or count", ErrInvalidActor)
	}
	return nil
}

// Pose converts the position and the XYZ Euler rotation in degrees.
func (a ActorConfig) Pose(i int) (mgl64.Vec3, mgl64.Quat) {
	pos := mgl64.Vec3(a.Position).Add(mgl64.Vec3(a.Spacing).Mul(float64(i)))
	r := a.Rotation
	q := mgl64.AnglesToQuat(mgl64.DegToRad(r[0]), mgl64.DegToRad(r[1]), mgl64.DegToRad(r[2]), mgl64.XYZ)
	return pos, q
}

// Copies is the number of actors a entry expands to.
func (a ActorConfig) Copies() int {
	if a.Count <= 0 {
		return 1
	}
	return a.Count
}

func (a ActorConfig) DensityOrDefault() float64 {
	if a.Density > 0 {
		return a.Density
	}
	return DefaultDensity
}
