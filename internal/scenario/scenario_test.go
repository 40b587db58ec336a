package scenario

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/san-kum/rigidkit/internal/config"
	"github.com/san-kum/rigidkit/internal/native/planar"
)

func setup(t *testing.T, cfg *config.Config, opts Options) (*Scenario, *planar.Engine) {
	t.Helper()
	engine := planar.New()
	opts.Engine = engine
	s := New(cfg, opts)
	if err := s.Setup(NewRegistry()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
		if c := engine.Counts(); c != (planar.Counts{}) {
			t.Errorf("leaked native objects: %+v", c)
		}
	})
	return s, engine
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if got := reg.List(); !slices.Equal(got, []string{"actors", "rain", "tower"}) {
		t.Errorf("unexpected scenarios %v", got)
	}
	if _, err := reg.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown scenario")
	}
	if _, err := reg.Get(""); err != nil {
		t.Errorf("empty name should select actors: %v", err)
	}
}

func TestDropPreset(t *testing.T) {
	s, _ := setup(t, config.GetPreset("drop"), Options{})

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("run errors: %v", result.Errors)
	}
	if result.StepsTaken != 200 || len(result.Frames) != 201 {
		t.Errorf("expected 200 steps / 201 frames, got %d / %d", result.StepsTaken, len(result.Frames))
	}

	final := result.Final()
	if len(final.Bodies) != 2 || final.Bodies[1].Name != "ball" {
		t.Fatalf("unexpected bodies %+v", final.Bodies)
	}
	if y := final.Bodies[1].Position.Y(); y >= 10 {
		t.Errorf("ball did not fall: y=%v", y)
	}
	if _, ok := result.Metrics["min_height"]; !ok {
		t.Errorf("missing default metrics: %v", result.Metrics)
	}
	if s.System().Scenes()[0].ActiveActorCount() != 2 {
		t.Error("expected 2 actors in the scene")
	}
}

func TestCopiesAndVelocity(t *testing.T) {
	s, _ := setup(t, config.GetPreset("domino"), Options{})
	sim := s.Simulator()
	if sim.Tracked() != 14 {
		t.Fatalf("expected 14 tracked actors, got %d", sim.Tracked())
	}
	f := sim.Snapshot()
	if f.Bodies[1].Name != "tile_0" || f.Bodies[12].Name != "tile_11" || f.Bodies[13].Name != "striker" {
		t.Errorf("unexpected names %s %s %s", f.Bodies[1].Name, f.Bodies[12].Name, f.Bodies[13].Name)
	}
	if dx := f.Bodies[2].Position.X() - f.Bodies[1].Position.X(); math.Abs(dx-1.2) > 1e-9 {
		t.Errorf("expected spacing 1.2, got %v", dx)
	}
	if f.Bodies[13].Velocity.X() != 4 {
		t.Errorf("expected striker velocity 4, got %v", f.Bodies[13].Velocity)
	}
}

func TestTower(t *testing.T) {
	cfg := config.GetPreset("tower")
	cfg.Params["levels"] = 2
	cfg.Steps = 30
	s, _ := setup(t, cfg, Options{})

	if s.Simulator().Tracked() != 7 {
		t.Errorf("expected 7 tracked actors, got %d", s.Simulator().Tracked())
	}
	result, err := s.Run(context.Background())
	if err != nil || len(result.Errors) != 0 {
		t.Fatalf("run failed: %v %v", err, result.Errors)
	}
}

func TestRainIsSeeded(t *testing.T) {
	positions := func(seed int64) []float64 {
		cfg := config.GetPreset("rain")
		cfg.Seed = seed
		cfg.Params["count"] = 5
		s, _ := setup(t, cfg, Options{})
		var xs []float64
		for _, b := range s.Simulator().Snapshot().Bodies {
			xs = append(xs, b.Position.X(), b.Position.Y())
		}
		return xs
	}

	a, b := positions(3), positions(3)
	if len(a) != 12 {
		t.Fatalf("expected 6 bodies, got %d values", len(a))
	}
	if !slices.Equal(a, b) {
		t.Error("same seed produced different scenes")
	}
	if slices.Equal(a, positions(4)) {
		t.Error("different seeds produced the same scene")
	}
}

func TestRunAll(t *testing.T) {
	cfg := config.GetPreset("drop")
	cfg.Steps = 10
	cfg.Threads = 2
	s, _ := setup(t, cfg, Options{Scenes: 3})

	if s.System().SceneCount() != 3 {
		t.Fatalf("expected 3 scenes, got %d", s.System().SceneCount())
	}
	results, err := s.RunAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.StepsTaken != 10 {
			t.Errorf("scene %d: %d steps", i, r.StepsTaken)
		}
	}
}

func TestSetupErrors(t *testing.T) {
	cfg := config.GetPreset("drop")
	cfg.Scenario = "nonexistent"
	if err := New(cfg, Options{}).Setup(NewRegistry()); err == nil {
		t.Error("expected unknown scenario error")
	}

	cfg = config.GetPreset("drop")
	cfg.Solver = "jacobi"
	if err := New(cfg, Options{}).Setup(NewRegistry()); err == nil {
		t.Error("expected invalid solver error")
	}

	if _, err := New(cfg, Options{}).Run(context.Background()); !errors.Is(err, ErrNotSetup) {
		t.Errorf("expected ErrNotSetup, got %v", err)
	}
}

func TestSetupFailureReleases(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry()
	reg.Register("broken", func(b *Build) error {
		if err := b.Add(ground); err != nil {
			return err
		}
		return boom
	})

	engine := planar.New()
	cfg := config.DefaultConfig()
	cfg.Scenario = "broken"
	err := New(cfg, Options{Engine: engine}).Setup(reg)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c := engine.Counts(); c != (planar.Counts{}) {
		t.Errorf("leaked native objects: %+v", c)
	}
}
