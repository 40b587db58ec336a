package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

// columns written per body, in order.
var bodyColumns = [...]string{"x", "y", "z", "vx", "vy", "vz"}

var ErrMalformed = errors.New("storage: malformed trajectory")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type BodyInfo struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Shape string `json:"shape"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Preset    string             `json:"preset,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Threads   int                `json:"threads"`
	Solver    string             `json:"solver"`
	Frames    int                `json:"frames"`
	Bodies    []BodyInfo         `json:"bodies"`
	Metrics   map[string]float64 `json:"metrics"`
	Errors    []string           `json:"errors,omitempty"`
}

// Describe fills the body list, frame count, metrics and errors from result.
func (m *RunMetadata) Describe(result *sim.Result) {
	m.Frames = len(result.Frames)
	m.Metrics = result.Metrics
	if m.Steps == 0 || result.StepsTaken < m.Steps {
		m.Steps = result.StepsTaken
	}
	m.Bodies = m.Bodies[:0]
	if len(result.Frames) > 0 {
		for _, b := range result.Frames[0].Bodies {
			m.Bodies = append(m.Bodies, BodyInfo{Name: b.Name, Kind: b.Kind, Shape: b.Shape})
		}
	}
	m.Errors = m.Errors[:0]
	for _, err := range result.Errors {
		m.Errors = append(m.Errors, err.Error())
	}
}

// Save writes meta and the trajectory of result under a new run directory
// and returns the run id.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if result == nil {
		return "", errors.New("storage: nil result")
	}
	ts := s.now()
	name := meta.Scenario
	if meta.Preset != "" {
		name = meta.Preset
	}
	runID := fmt.Sprintf("%s_%d", name, ts.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = ts
	meta.Describe(result)

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeTrajectory(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(result.Frames) == 0 {
		return nil
	}

	header := []string{"frame", "time"}
	for _, b := range result.Frames[0].Bodies {
		for _, c := range bodyColumns {
			header = append(header, b.Name+"."+c)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, fr := range result.Frames {
		row := []string{strconv.FormatUint(fr.Index, 10), formatFloat(fr.Time)}
		for _, b := range fr.Bodies {
			for _, v := range [...]float64{
				b.Position.X(), b.Position.Y(), b.Position.Z(),
				b.Velocity.X(), b.Velocity.Y(), b.Velocity.Z(),
			} {
				row = append(row, formatFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrajectory rebuilds the frames of a stored run. Rotations, angular
// velocities and masses are not persisted and come back zero.
func (s *Store) LoadTrajectory(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	result := &sim.Result{Metrics: meta.Metrics, StepsTaken: meta.Steps}
	if len(records) < 2 {
		return result, nil
	}

	bodies, err := bodiesFromHeader(records[0], meta.Bodies)
	if err != nil {
		return nil, err
	}

	result.Frames = make([]sim.Frame, 0, len(records)-1)
	for line, record := range records[1:] {
		fr, err := parseRow(record, bodies)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line+2, err)
		}
		result.Frames = append(result.Frames, fr)
	}
	return result, nil
}

func bodiesFromHeader(header []string, known []BodyInfo) ([]BodyInfo, error) {
	if len(header) < 2 || (len(header)-2)%len(bodyColumns) != 0 {
		return nil, fmt.Errorf("%w: %d columns", ErrMalformed, len(header))
	}
	n := (len(header) - 2) / len(bodyColumns)
	bodies := make([]BodyInfo, n)
	for i := range bodies {
		col := header[2+i*len(bodyColumns)]
		name, ok := strings.CutSuffix(col, "."+bodyColumns[0])
		if !ok {
			return nil, fmt.Errorf("%w: column %q", ErrMalformed, col)
		}
		bodies[i].Name = name
		if i < len(known) && known[i].Name == name {
			bodies[i] = known[i]
		}
	}
	return bodies, nil
}

func parseRow(record []string, bodies []BodyInfo) (sim.Frame, error) {
	if len(record) != 2+len(bodies)*len(bodyColumns) {
		return sim.Frame{}, fmt.Errorf("%d fields", len(record))
	}
	index, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return sim.Frame{}, err
	}
	t, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return sim.Frame{}, err
	}

	fr := sim.Frame{Index: index, Time: t, Bodies: make([]sim.Body, len(bodies))}
	for i, info := range bodies {
		var v [6]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(record[2+i*len(bodyColumns)+j], 64); err != nil {
				return sim.Frame{}, err
			}
		}
		fr.Bodies[i] = sim.Body{
			Name:     info.Name,
			Kind:     info.Kind,
			Shape:    info.Shape,
			Position: mgl64.Vec3{v[0], v[1], v[2]},
			Rotation: mgl64.QuatIdent(),
			Velocity: mgl64.Vec3{v[3], v[4], v[5]},
		}
	}
	return fr, nil
}
