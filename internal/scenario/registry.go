package scenario

import (
	"fmt"
	"sort"

	"github.com/san-kum/rigidkit/internal/config"
)

// Builder populates a freshly created scene.
type Builder func(b *Build) error

type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}

	r.builders["actors"] = buildActors
	r.builders["tower"] = buildTower
	r.builders["rain"] = buildRain

	return r
}

func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

func (r *Registry) Get(name string) (Builder, error) {
	if name == "" {
		name = "actors"
	}
	fn, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return fn, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var ground = config.ActorConfig{Name: "ground", Kind: "static", Shape: "plane", Plane: [4]float64{0, 1, 0, 0}}

func buildActors(b *Build) error {
	for _, a := range b.Config.Actors {
		if err := b.Add(a); err != nil {
			return err
		}
	}
	return nil
}

// buildTower stacks "levels" rows of "width" bricks, each row offset by half
// a brick.
func buildTower(b *Build) error {
	if err := b.Add(ground); err != nil {
		return err
	}
	levels := int(b.Config.Param("levels", 6))
	width := int(b.Config.Param("width", 3))
	if levels < 1 || width < 1 {
		return fmt.Errorf("tower: levels and width must be positive, got %d x %d", levels, width)
	}

	const brickW, brickH = 1.0, 0.5
	for level := 0; level < levels; level++ {
		offset := -float64(width-1) * brickW / 2
		if level%2 == 1 {
			offset += brickW / 2
		}
		brick := config.ActorConfig{
			Name:        fmt.Sprintf("brick_%d", level),
			Kind:        "dynamic",
			Shape:       "box",
			HalfExtents: [3]float64{brickW/2 - 0.01, brickH / 2, 0.5},
			Position:    [3]float64{offset, brickH/2 + float64(level)*brickH, 0},
			Spacing:     [3]float64{brickW, 0, 0},
			Count:       width,
			Density:     config.DefaultDensity,
		}
		if err := b.Add(brick); err != nil {
			return err
		}
	}
	return nil
}

// buildRain scatters "count" random shapes above the ground, seeded by the
// config seed.
func buildRain(b *Build) error {
	if err := b.Add(ground); err != nil {
		return err
	}
	count := int(b.Config.Param("count", 30))
	spread := b.Config.Param("spread", 10)
	height := b.Config.Param("height", 15)
	if count < 0 || spread < 0 || height <= 0 {
		return fmt.Errorf("rain: invalid parameters count=%d spread=%v height=%v", count, spread, height)
	}

	shapes := [...]string{"sphere", "box", "capsule"}
	for i := 0; i < count; i++ {
		size := 0.2 + 0.3*b.Rand.Float64()
		a := config.ActorConfig{
			Name:     fmt.Sprintf("drop_%d", i),
			Kind:     "dynamic",
			Shape:    shapes[b.Rand.Intn(len(shapes))],
			Radius:   size,
			Position: [3]float64{(b.Rand.Float64() - 0.5) * spread, height/2 + b.Rand.Float64()*height/2, 0},
			Rotation: [3]float64{0, 0, b.Rand.Float64() * 360},
			Density:  config.DefaultDensity,
		}
		switch a.Shape {
		case "box":
			a.HalfExtents = [3]float64{size, size, size}
		case "capsule":
			a.Radius = size / 2
			a.HalfHeight = size
		}
		if err := b.Add(a); err != nil {
			return err
		}
	}
	return nil
}
