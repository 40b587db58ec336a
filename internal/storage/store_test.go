package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/sim"
)

func testResult() *sim.Result {
	frame := func(i uint64, y, vy float64) sim.Frame {
		return sim.Frame{Index: i, Time: float64(i) * 0.1, Bodies: []sim.Body{
			{Name: "ground", Kind: "static", Shape: "plane", Rotation: mgl64.QuatIdent()},
			{Name: "ball", Kind: "dynamic", Shape: "sphere", Position: mgl64.Vec3{0, y, 0}, Velocity: mgl64.Vec3{0, vy, 0}, Rotation: mgl64.QuatIdent()},
		}}
	}
	return &sim.Result{
		Frames:     []sim.Frame{frame(0, 10, 0), frame(1, 9.9, -0.98), frame(2, 9.7, -1.96)},
		Metrics:    map[string]float64{"min_height": 9.7},
		StepsTaken: 2,
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	st := newStore(t)

	runID, err := st.Save(RunMetadata{Scenario: "actors", Preset: "drop", Seed: 42, Dt: 0.1, Steps: 2}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.ID != runID || meta.Preset != "drop" || meta.Seed != 42 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Frames != 3 || meta.Steps != 2 {
		t.Errorf("expected 3 frames / 2 steps, got %d / %d", meta.Frames, meta.Steps)
	}
	if len(meta.Bodies) != 2 || meta.Bodies[1] != (BodyInfo{Name: "ball", Kind: "dynamic", Shape: "sphere"}) {
		t.Errorf("unexpected bodies %+v", meta.Bodies)
	}
	if meta.Metrics["min_height"] != 9.7 {
		t.Errorf("expected min_height 9.7, got %f", meta.Metrics["min_height"])
	}

	result, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}
	if len(result.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(result.Frames))
	}
	last := result.Final()
	if last.Index != 2 || last.Bodies[1].Name != "ball" || last.Bodies[1].Kind != "dynamic" {
		t.Errorf("unexpected final frame %+v", last)
	}
	if last.Bodies[1].Position.Y() != 9.7 || last.Bodies[1].Velocity.Y() != -1.96 {
		t.Errorf("unexpected ball state %v %v", last.Bodies[1].Position, last.Bodies[1].Velocity)
	}
}

func TestStoreStepsTakenOnEarlyStop(t *testing.T) {
	st := newStore(t)
	r := testResult()
	r.Errors = []error{errors.New("boom")}

	runID, err := st.Save(RunMetadata{Scenario: "actors", Steps: 100}, r)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Steps != 2 {
		t.Errorf("expected 2 steps, got %d", meta.Steps)
	}
	if len(meta.Errors) != 1 || meta.Errors[0] != "boom" {
		t.Errorf("unexpected errors %v", meta.Errors)
	}
}

func TestStoreList(t *testing.T) {
	st := newStore(t)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second"} {
		st.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		if _, err := st.Save(RunMetadata{Scenario: name}, testResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(st.Dir(), "stray.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Scenario != "second" {
		t.Errorf("expected newest first, got %s", runs[0].Scenario)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "missing")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	st := newStore(t)

	runID, err := st.Save(RunMetadata{Scenario: "actors"}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(st.Dir(), runID)
	for _, name := range []string{metadataFile, trajectoryFile} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestLoadTrajectoryMalformed(t *testing.T) {
	st := newStore(t)
	runID, err := st.Save(RunMetadata{Scenario: "actors"}, testResult())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(st.Dir(), runID, trajectoryFile)
	if err := os.WriteFile(path, []byte("frame,time,ball.x\n0,0,1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadTrajectory(runID); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, "drop", 0.1, testResult()); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Scenario != "drop" || data.Steps != 2 || len(data.Frames) != 3 {
		t.Errorf("unexpected export %+v", data)
	}
	if data.Frames[2].Bodies[1].Position[1] != 9.7 {
		t.Errorf("unexpected position %v", data.Frames[2].Bodies[1].Position)
	}
	if data.Frames[0].Bodies[0].Rotation != [4]float64{1, 0, 0, 0} {
		t.Errorf("expected identity rotation, got %v", data.Frames[0].Bodies[0].Rotation)
	}
}
