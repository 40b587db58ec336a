package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/rigidkit/internal/sim"
)

type ExportBody struct {
	Name            string     `json:"name"`
	Position        [3]float64 `json:"position"`
	Rotation        [4]float64 `json:"rotation"`
	Velocity        [3]float64 `json:"velocity"`
	AngularVelocity [3]float64 `json:"angular_velocity"`
	Sleeping        bool       `json:"sleeping,omitempty"`
}

type ExportFrame struct {
	Index  uint64       `json:"index"`
	Time   float64      `json:"time"`
	Bodies []ExportBody `json:"bodies"`
}

type ExportData struct {
	Scenario string             `json:"scenario"`
	Dt       float64            `json:"dt"`
	Steps    int                `json:"steps"`
	Bodies   []BodyInfo         `json:"bodies"`
	Frames   []ExportFrame      `json:"frames"`
	Metrics  map[string]float64 `json:"metrics"`
	Errors   []string           `json:"errors,omitempty"`
}

func NewExportData(scenario string, dt float64, result *sim.Result) ExportData {
	meta := RunMetadata{Scenario: scenario, Dt: dt}
	meta.Describe(result)

	data := ExportData{
		Scenario: scenario,
		Dt:       dt,
		Steps:    result.StepsTaken,
		Bodies:   meta.Bodies,
		Frames:   make([]ExportFrame, len(result.Frames)),
		Metrics:  result.Metrics,
		Errors:   meta.Errors,
	}

	for i, f := range result.Frames {
		ef := ExportFrame{Index: f.Index, Time: f.Time, Bodies: make([]ExportBody, len(f.Bodies))}
		for j, b := range f.Bodies {
			ef.Bodies[j] = ExportBody{
				Name:            b.Name,
				Position:        b.Position,
				Rotation:        [4]float64{b.Rotation.W, b.Rotation.V[0], b.Rotation.V[1], b.Rotation.V[2]},
				Velocity:        b.Velocity,
				AngularVelocity: b.AngularVelocity,
				Sleeping:        b.Sleeping,
			}
		}
		data.Frames[i] = ef
	}
	return data
}

// ExportJSON writes the whole run as indented JSON.
func ExportJSON(w io.Writer, scenario string, dt float64, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(scenario, dt, result))
}

func ExportJSONFile(path, scenario string, dt float64, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := ExportJSON(file, scenario, dt, result); err != nil {
		return err
	}
	return file.Close()
}
