package experiment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/experiment"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/task"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

func baseConfig() config.Config {
	return config.Config{
		Control: config.Control{Minutes: 1},
		Traffic: config.Traffic{ArrivalRate: 1200},
		Signal:  config.Signal{CycleLength: 20},
		Backend: config.Backend{Kind: config.BackendDomain, WorkerCount: 1},
		Seed:    3,
	}
}

func TestRunScalingWorkers(t *testing.T) {
	results, err := experiment.RunScaling(context.Background(), baseConfig(), experiment.ParamWorkerCount, []int{1, 2, 4})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, w := range []int{1, 2, 4} {
		assert.Equal(t, w, results[i].ExtraStats.WorkerCount)
		assert.Equal(t, w, results[i].Config.Backend.WorkerCount)
		assert.Equal(t, results[0].VehiclesCompleted, results[i].VehiclesCompleted)
		assert.Equal(t, results[0].AvgTravelTime, results[i].AvgTravelTime)
	}
	assert.Len(t, experiment.Speedup(results), 3)
}

func TestRunScalingArrivalRate(t *testing.T) {
	results, err := experiment.RunScaling(context.Background(), baseConfig(), experiment.ParamArrivalRate, []int{0, 1800})
	require.NoError(t, err)
	assert.Zero(t, results[0].ExtraStats.VehiclesCreated)
	assert.Positive(t, results[1].ExtraStats.VehiclesCreated)
}

func TestRunScalingErrors(t *testing.T) {
	_, err := experiment.RunScaling(context.Background(), baseConfig(), "threads", []int{1})
	assert.ErrorIs(t, err, config.ErrConfiguration)

	results, err := experiment.RunScaling(context.Background(), baseConfig(), experiment.ParamWorkerCount, []int{2, 0})
	assert.ErrorIs(t, err, config.ErrConfiguration)
	assert.Len(t, results, 1)
}

func TestRunBackends(t *testing.T) {
	c := baseConfig()
	c.Backend.WorkerCount = 3
	results, err := experiment.RunBackends(context.Background(), c,
		[]string{config.BackendSequential, config.BackendDomain, config.BackendDevice})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, results[0].VehiclesCompleted, r.VehiclesCompleted)
		assert.False(t, r.ExtraStats.Degraded)
	}
	assert.Equal(t, []string{"sequential", "domain", "device"}, []string{results[0].Backend, results[1].Backend, results[2].Backend})
}

func TestSpeedup(t *testing.T) {
	assert.Nil(t, experiment.Speedup(nil))
	got := experiment.Speedup([]*task.Result{{WallTimeSeconds: 4}, {WallTimeSeconds: 2}, {}})
	assert.Equal(t, []float64{1, 2, 0}, got)
}

func TestRunScalingKeepsPartialResult(t *testing.T) {
	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := experiment.RunScaling(runCtx, baseConfig(), experiment.ParamWorkerCount, []int{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ExtraStats.WorkerCount)
	assert.Zero(t, results[0].ExtraStats.Steps)

	results, err = experiment.RunBackends(runCtx, baseConfig(), []string{config.BackendDevice})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, "device", results[0].Backend)
}
