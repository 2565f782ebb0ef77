package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/conservation/internal/sim"
)

type ExportData struct {
	Env        string             `json:"env"`
	Policy     string             `json:"policy"`
	Steps      int                `json:"steps"`
	Episodes   []sim.Episode      `json:"episodes"`
	Trajectory sim.Trajectory     `json:"trajectory"`
	Metrics    map[string]float64 `json:"metrics"`
}

func newExportData(env, policy string, result *sim.Result) ExportData {
	return ExportData{
		Env:        env,
		Policy:     policy,
		Steps:      len(result.Trajectory),
		Episodes:   result.Episodes,
		Trajectory: result.Trajectory,
		Metrics:    result.Metrics,
	}
}

// ExportJSON writes the run to path.
func ExportJSON(path, env, policy string, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, env, policy, result)
}

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, env, policy string, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(env, policy, result))
}

// ReadJSON decodes an export produced by WriteJSON.
func ReadJSON(r io.Reader) (*ExportData, error) {
	var data ExportData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
