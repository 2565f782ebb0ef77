package storage

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/conservation/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Trajectory: sim.Trajectory{
			{Time: 0, State: 0.75, Action: 0, Reward: 0.8, Rep: 0},
			{Time: 1, State: 0.8, Action: 0.1, Reward: 0.6, Rep: 0},
			{Time: 0, State: 0.75, Action: 0, Reward: 0.7, Rep: 1},
		},
		Episodes: []sim.Episode{
			{Rep: 0, Steps: 2, Reward: 1.4},
			{Rep: 1, Steps: 1, Reward: 0.7, Collapsed: true},
		},
		Metrics: map[string]float64{"episode_reward": 1.05},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{
		Env:    "conservation-v0",
		Policy: "fixed",
		Seed:   42,
		Params: map[string]float64{"r": 0.3},
	}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.HasPrefix(runID, "conservation-v0_") || len(runID) != len("conservation-v0_")+8 {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Env != "conservation-v0" {
		t.Errorf("expected env 'conservation-v0', got '%s'", meta.Env)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Metrics["episode_reward"] != 1.05 {
		t.Errorf("expected episode_reward 1.05, got %f", meta.Metrics["episode_reward"])
	}
	if len(meta.Episodes) != 2 || !meta.Episodes[1].Collapsed {
		t.Errorf("episodes not preserved: %+v", meta.Episodes)
	}
	if got := meta.MeanReward(); math.Abs(got-1.05) > 1e-12 {
		t.Errorf("expected mean reward 1.05, got %f", got)
	}

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}
	if len(traj) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(traj))
	}
	if traj[1].Action != 0.1 || traj[2].Rep != 1 {
		t.Errorf("unexpected rows %+v", traj)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := st.Save(RunMetadata{Env: "a", Timestamp: older}, testResult()); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save(RunMetadata{Env: "b", Timestamp: older.Add(time.Hour)}, testResult()); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Env != "b" {
		t.Errorf("expected newest run first, got %s", runs[0].Env)
	}
}

func TestStoreFileStructure(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Env: "conservation-v5"}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "trajectory.csv"} {
		if _, err := os.Stat(filepath.Join(st.Dir(), runID, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	if err := st.Delete(runID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := st.Load(runID); err == nil {
		t.Error("expected error loading deleted run")
	}
	if err := st.Delete("missing"); err == nil {
		t.Error("expected error deleting missing run")
	}
}
