package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/conservation/internal/experiment"
	"github.com/san-kum/conservation/internal/storage"
)

const smokeScenario = `
name: smoke
description: hands-off then hold the tipping parameter
steps:
  - env: conservation-v0
    repetitions: 2
    horizon: 10
    seed: 1
    save: true
  - env: conservation-v5
    policy: target_parameter
    policy_params:
      target: 0.15
    repetitions: 1
    horizon: 10
`

func TestParseScenarioDefaults(t *testing.T) {
	sc, err := ParseScenario([]byte(smokeScenario))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 2)

	assert.Equal(t, "fixed", sc.Steps[0].Policy)
	assert.True(t, sc.Steps[0].Save)
	assert.Equal(t, 0.15, sc.Steps[1].PolicyParams.Target)
	assert.False(t, sc.Steps[1].Save)
}

func TestParseScenarioErrors(t *testing.T) {
	_, err := ParseScenario([]byte("name: empty\n"))
	assert.Error(t, err)

	_, err = ParseScenario([]byte("steps:\n  - repetitions: -1\n"))
	assert.ErrorContains(t, err, "step 1")
}

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(smokeScenario))
	require.NoError(t, err)

	store := storage.New(t.TempDir())
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), store, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].RunID)
	assert.Empty(t, results[1].RunID)
	assert.Len(t, results[0].Result.Episodes, 2)

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "conservation-v0", runs[0].Env)
}

func TestRunScenarioStopsOnError(t *testing.T) {
	sc, err := ParseScenario([]byte(`
steps:
  - env: conservation-v0
    repetitions: 1
    horizon: 5
  - env: conservation-v99
`))
	require.NoError(t, err)

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil, nil)
	assert.ErrorContains(t, err, "unknown env: conservation-v99")
	assert.Len(t, results, 1)
}

func TestRunSweepOverPredation(t *testing.T) {
	sweep := &ParameterSweep{
		Base: experiment.Config{
			Env:         "conservation-v2",
			Policy:      "fixed",
			Repetitions: 2,
			Seed:        3,
			Horizon:     50,
		},
		ParamName: "a",
		ParamMin:  0,
		ParamMax:  1,
		NumSteps:  2,
	}
	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0.0, results[0].ParamValue)
	assert.Equal(t, 1.0, results[1].ParamValue)
	assert.Greater(t, results[0].MeanReward, results[1].MeanReward)
	assert.Greater(t, results[0].Persistence, results[1].Persistence)

	_, err = RunSweep(context.Background(), &ParameterSweep{Base: sweep.Base, ParamName: "gamma", NumSteps: 1},
		experiment.NewRegistry(), nil)
	assert.Error(t, err)
}

func TestRunMonteCarlo(t *testing.T) {
	cfg := &MonteCarloConfig{
		Base: experiment.Config{
			Env:         "conservation-v0",
			Policy:      "fixed",
			Repetitions: 1,
			Seed:        5,
			Horizon:     20,
		},
		BaseState:    0.75,
		Perturbation: 0.2,
		NumTrials:    5,
		Seed:         9,
	}
	results, err := RunMonteCarlo(context.Background(), cfg, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, r := range results {
		assert.InDelta(t, 0.75, r.InitState, 0.2)
		assert.Greater(t, r.FinalState, 0.0)
	}
	persisted, collapsed := MonteCarloStats(results)
	assert.Equal(t, 5, persisted)
	assert.Equal(t, 0, collapsed)
}
