package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/conservation/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID           string             `json:"id"`
	Env          string             `json:"env"`
	Policy       string             `json:"policy"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         uint64             `json:"seed"`
	Repetitions  int                `json:"repetitions"`
	Horizon      int                `json:"horizon"`
	Replicates   int                `json:"replicates"`
	Params       map[string]float64 `json:"params"`
	PolicyParams map[string]float64 `json:"policy_params,omitempty"`
	Metrics      map[string]float64 `json:"metrics"`
	Episodes     []sim.Episode      `json:"episodes"`
}

// MeanReward is the mean episode reward of the run.
func (m RunMetadata) MeanReward() float64 {
	if len(m.Episodes) == 0 {
		return 0
	}
	total := 0.0
	for _, ep := range m.Episodes {
		total += ep.Reward
	}
	return total / float64(len(m.Episodes))
}

// Save writes a run directory named <env>_<short uuid> and fills in the
// metadata ID, timestamp and episodes.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Env, uuid.NewString()[:8])
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Metrics = result.Metrics
	meta.Episodes = result.Episodes

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := result.Trajectory.WriteCSV(csvFile); err != nil {
		return "", err
	}

	return meta.ID, nil
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
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadTrajectory reads the reporting table back. Malformed rows are
// skipped.
func (s *Store) LoadTrajectory(runID string) (sim.Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return sim.Trajectory{}, nil
	}

	traj := make(sim.Trajectory, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 5 {
			continue
		}
		row, ok := parseRow(record)
		if !ok {
			continue
		}
		traj = append(traj, row)
	}

	return traj, nil
}

func parseRow(record []string) (sim.Row, bool) {
	t, err := strconv.Atoi(record[0])
	if err != nil {
		return sim.Row{}, false
	}
	rep, err := strconv.Atoi(record[4])
	if err != nil {
		return sim.Row{}, false
	}

	var vals [3]float64
	for i := range vals {
		vals[i], err = strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return sim.Row{}, false
		}
	}

	return sim.Row{Time: t, State: vals[0], Action: vals[1], Reward: vals[2], Rep: rep}, true
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return os.RemoveAll(dir)
}
