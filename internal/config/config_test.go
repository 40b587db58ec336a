package config

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scenario != "actors" {
		t.Errorf("expected scenario actors, got %s", cfg.Scenario)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Gravity[1] != -9.81 {
		t.Errorf("expected gravity -9.81, got %v", cfg.Gravity)
	}
	if !errors.Is(cfg.Validate(), ErrNoActors) {
		t.Error("empty actor list should not validate")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("drop")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(cfg.Actors) != 2 || cfg.Actors[1].Radius != 1 || cfg.Actors[1].Density != 10 {
		t.Errorf("unexpected drop preset %+v", cfg.Actors)
	}
	if cfg.Steps != 200 || math.Abs(cfg.Dt-1.0/30) > 1e-12 {
		t.Errorf("unexpected drop timing %v x %d", cfg.Dt, cfg.Steps)
	}

	cfg.Actors[1].Material.Restitution = 0
	if again := GetPreset("drop"); again.Actors[1].Material.Restitution != 0.6 {
		t.Error("preset was modified through a returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d names, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestActorValidate(t *testing.T) {
	tests := []struct {
		name  string
		actor ActorConfig
		ok    bool
	}{
		{"sphere", ActorConfig{Kind: "dynamic", Shape: "sphere", Radius: 1}, true},
		{"zero radius", ActorConfig{Kind: "dynamic", Shape: "sphere"}, false},
		{"box", ActorConfig{Kind: "static", Shape: "box", HalfExtents: [3]float64{1, 1, 1}}, true},
		{"flat box", ActorConfig{Kind: "static", Shape: "box", HalfExtents: [3]float64{1, 0, 1}}, false},
		{"capsule", ActorConfig{Kind: "kinematic", Shape: "capsule", Radius: 0.2, HalfHeight: 1}, true},
		{"dynamic plane", ActorConfig{Kind: "dynamic", Shape: "plane", Plane: [4]float64{0, 1, 0, 0}}, false},
		{"zero normal", ActorConfig{Kind: "static", Shape: "plane"}, false},
		{"unknown kind", ActorConfig{Kind: "ghost", Shape: "sphere", Radius: 1}, false},
		{"unknown shape", ActorConfig{Kind: "static", Shape: "torus"}, false},
	}
	for _, tt := range tests {
		err := tt.actor.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidActor) {
			t.Errorf("%s: expected ErrInvalidActor, got %v", tt.name, err)
		}
	}
}

func TestPose(t *testing.T) {
	a := ActorConfig{Position: [3]float64{1, 2, 0}, Spacing: [3]float64{0, 1, 0}, Rotation: [3]float64{0, 0, 90}}
	pos, q := a.Pose(2)
	if pos[1] != 4 {
		t.Errorf("expected y 4, got %v", pos[1])
	}
	v := q.Rotate([3]float64{1, 0, 0})
	if math.Abs(v[0]) > 1e-9 || math.Abs(v[1]-1) > 1e-9 {
		t.Errorf("expected 90 degrees about z, got %v", v)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("domino")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Actors) != len(cfg.Actors) || loaded.Actors[1].Count != 12 {
		t.Errorf("round trip lost actors: %+v", loaded.Actors)
	}
	if loaded.Actors[2].Velocity != cfg.Actors[2].Velocity {
		t.Errorf("velocity mismatch: %v", loaded.Actors[2].Velocity)
	}
}
