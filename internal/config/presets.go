package config

import "sort"

var ground = ActorConfig{Name: "ground", Kind: "static", Shape: "plane", Plane: [4]float64{0, 1, 0, 0}}

var bouncy = &MaterialConfig{StaticFriction: 0.5, DynamicFriction: 0.5, Restitution: 0.6}

var Presets = map[string]*Config{
	"drop": {
		Scenario: "actors", Threads: 1, Solver: "pgs", Dt: 1.0 / 30, Steps: 200,
		Gravity: [3]float64{0, -9.81, 0},
		Actors: []ActorConfig{
			ground,
			{Name: "ball", Kind: "dynamic", Shape: "sphere", Radius: 1, Position: [3]float64{0, 10, 0}, Density: 10, Material: bouncy},
		},
	},
	"stack": {
		Scenario: "actors", Threads: 1, Solver: "tgs", Dt: 1.0 / 60, Steps: 600,
		Gravity: [3]float64{0, -9.81, 0},
		Actors: []ActorConfig{
			ground,
			{
				Name: "crate", Kind: "dynamic", Shape: "box", HalfExtents: [3]float64{0.5, 0.5, 0.5},
				Position: [3]float64{0, 0.5, 0}, Spacing: [3]float64{0, 1.01, 0}, Count: 6, Density: 10,
			},
		},
	},
	"domino": {
		Scenario: "actors", Threads: 2, Solver: "pgs", Dt: 1.0 / 60, Steps: 900,
		Gravity: [3]float64{0, -9.81, 0},
		Actors: []ActorConfig{
			ground,
			{
				Name: "tile", Kind: "dynamic", Shape: "box", HalfExtents: [3]float64{0.1, 1, 0.5},
				Position: [3]float64{0, 1, 0}, Spacing: [3]float64{1.2, 0, 0}, Count: 12, Density: 5,
			},
			{
				Name: "striker", Kind: "dynamic", Shape: "sphere", Radius: 0.3,
				Position: [3]float64{-1.5, 1.8, 0}, Velocity: [3]float64{4, 0, 0}, Density: 20,
			},
		},
	},
	"capsules": {
		Scenario: "actors", Threads: 2, Solver: "pgs", Dt: 1.0 / 60, Steps: 600,
		Gravity: [3]float64{0, -9.81, 0},
		Actors: []ActorConfig{
			ground,
			{Name: "ramp", Kind: "static", Shape: "box", HalfExtents: [3]float64{4, 0.2, 1}, Position: [3]float64{0, 2, 0}, Rotation: [3]float64{0, 0, -15}},
			{
				Name: "pill", Kind: "dynamic", Shape: "capsule", Radius: 0.25, HalfHeight: 0.5,
				Position: [3]float64{-3, 4, 0}, Spacing: [3]float64{0.8, 0.7, 0}, Count: 5, Density: 8,
			},
		},
	},
	"kinematic": {
		Scenario: "actors", Threads: 1, Solver: "pgs", Dt: 1.0 / 60, Steps: 600,
		Gravity: [3]float64{0, -9.81, 0},
		Actors: []ActorConfig{
			ground,
			{
				Name: "paddle", Kind: "kinematic", Shape: "box", HalfExtents: [3]float64{2, 0.2, 1},
				Position: [3]float64{-6, 1, 0}, Velocity: [3]float64{2, 0, 0},
			},
			{
				Name: "ball", Kind: "dynamic", Shape: "sphere", Radius: 0.4,
				Position: [3]float64{-4, 0.4, 0}, Spacing: [3]float64{2, 0, 0}, Count: 4, Density: 2,
			},
		},
	},
	"tower": {
		Scenario: "tower", Threads: 2, Solver: "tgs", Dt: 1.0 / 60, Steps: 600,
		Gravity: [3]float64{0, -9.81, 0},
		Params:  map[string]float64{"levels": 8, "width": 3},
	},
	"rain": {
		Scenario: "rain", Threads: 4, Solver: "pgs", Dt: 1.0 / 60, Steps: 900, Seed: 7,
		Gravity: [3]float64{0, -9.81, 0},
		Params:  map[string]float64{"count": 60, "spread": 10, "height": 20},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.PVD.Host == "" {
		out.PVD = PVDConfig{Host: "127.0.0.1", Port: DefaultPVDPort}
	}
	return out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
