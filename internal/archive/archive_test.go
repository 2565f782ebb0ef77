package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/conservation/internal/sim"
	"github.com/san-kum/conservation/internal/storage"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func run(id, env string, rewards ...float64) storage.RunMetadata {
	meta := storage.RunMetadata{
		ID:        id,
		Env:       env,
		Policy:    "fixed",
		Seed:      7,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Params:    map[string]float64{"r": 0.3},
		Metrics:   map[string]float64{"episode_reward": 1},
	}
	for i, r := range rewards {
		meta.Episodes = append(meta.Episodes, sim.Episode{Rep: i, Steps: 10, Reward: r, Collapsed: r < 0})
	}
	return meta
}

func TestRecordAndBest(t *testing.T) {
	db := openTest(t)

	require.NoError(t, db.Record(run("a", "conservation-v0", 1, 3)))
	require.NoError(t, db.Record(run("b", "conservation-v0", 5, 7)))
	require.NoError(t, db.Record(run("c", "conservation-v5", 10, -1)))

	best, err := db.Best("", 10)
	require.NoError(t, err)
	require.Len(t, best, 3)
	assert.Equal(t, "b", best[0].ID)
	assert.Equal(t, 6.0, best[0].MeanReward)

	best, err = db.Best("conservation-v5", 10)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, 0.5, best[0].CollapseRate)
	assert.JSONEq(t, `{"r":0.3}`, best[0].ParamsJSON)

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordReplaces(t *testing.T) {
	db := openTest(t)

	require.NoError(t, db.Record(run("a", "conservation-v0", 1, 2, 3)))
	require.NoError(t, db.Record(run("a", "conservation-v0", 4)))

	eps, err := db.Episodes("a")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, 4.0, eps[0].Reward)
}

func TestSync(t *testing.T) {
	db := openTest(t)
	st := storage.New(t.TempDir())

	res := &sim.Result{
		Trajectory: sim.Trajectory{{Time: 0, State: 0.75, Reward: 1}},
		Episodes:   []sim.Episode{{Rep: 0, Steps: 1, Reward: 1}},
		Metrics:    map[string]float64{},
	}
	_, err := st.Save(storage.RunMetadata{Env: "conservation-v0", Policy: "fixed"}, res)
	require.NoError(t, err)
	_, err = st.Save(storage.RunMetadata{Env: "conservation-v2", Policy: "fixed"}, res)
	require.NoError(t, err)

	added, err := db.Sync(st)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = db.Sync(st)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	recent, err := db.Recent(5)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
