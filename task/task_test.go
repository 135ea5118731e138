package task_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/metrics"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/task"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

func baseConfig() config.Config {
	return config.Config{
		Control: config.Control{Minutes: 3},
		Traffic: config.Traffic{ArrivalRate: 900, SplitTurnLanes: true, MaxVehiclesPerLane: 40},
		Signal:  config.Signal{CycleLength: 30},
		Backend: config.Backend{Kind: config.BackendSequential, WorkerCount: 1},
		Seed:    11,
	}
}

func run(t *testing.T, c config.Config) (*task.Context, *task.Result) {
	t.Helper()
	ctx, err := task.NewContext(c)
	require.NoError(t, err)
	res, err := ctx.Run(context.Background())
	require.NoError(t, err)
	return ctx, res
}

func TestDeterminism(t *testing.T) {
	a, ra := run(t, baseConfig())
	b, rb := run(t, baseConfig())
	require.NotZero(t, ra.ExtraStats.VehiclesCreated)
	assert.Equal(t, a.Recorder().Samples(), b.Recorder().Samples())
	assert.Equal(t, ra.VehiclesCompleted, rb.VehiclesCompleted)
	assert.Equal(t, ra.AvgTravelTime, rb.AvgTravelTime)
}

func TestBackendEquivalence(t *testing.T) {
	baseline, expected := run(t, baseConfig())
	require.NotZero(t, expected.VehiclesCompleted)

	for _, b := range []config.Backend{
		{Kind: config.BackendSequential, WorkerCount: 4},
		{Kind: config.BackendDomain, WorkerCount: 2},
		{Kind: config.BackendDomain, WorkerCount: 5},
		{Kind: config.BackendDevice, WorkerCount: 3, BlockSize: 8},
		{Kind: config.BackendDevice, WorkerCount: 1, BlockSize: 1024},
	} {
		c := baseConfig()
		c.Backend = b
		ctx, res := run(t, c)
		assert.Equal(t, b.Kind, res.Backend)
		assert.Equal(t, baseline.Recorder().Samples(), ctx.Recorder().Samples(), "%+v", b)
		assert.Equal(t, expected.VehiclesCompleted, res.VehiclesCompleted)
		assert.Equal(t, expected.AvgTravelTime, res.AvgTravelTime)
		assert.Equal(t, expected.AvgStopsPerVehicle, res.AvgStopsPerVehicle)
		assert.Equal(t, expected.ExtraStats.MaxQueuePerLane, res.ExtraStats.MaxQueuePerLane)
	}
}

func TestConservationAndNonNegativity(t *testing.T) {
	ctx, err := task.NewContext(baseConfig())
	require.NoError(t, err)
	for sample, err := range ctx.Samples(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, sample.CumulativeCreated, sample.CumulativeExited+int64(sample.InStore))
		for _, l := range ctx.Lanes() {
			for _, s := range ctx.Store().Snapshots(l.ID) {
				assert.GreaterOrEqual(t, s.V, 0.)
				assert.LessOrEqual(t, s.Position, l.Length)
				assert.NotEqual(t, entity.StateExited, s.State)
			}
		}
	}
	assert.True(t, ctx.Clock().Done())
}

func TestSignalFlips(t *testing.T) {
	c := baseConfig()
	c.Control.Minutes = 2
	c.Signal.CycleLength = 60
	ctx, _ := run(t, c)
	samples := ctx.Recorder().Samples()
	require.Len(t, samples, 600)
	flips := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].Phase != samples[i-1].Phase {
			flips++
		}
	}
	assert.Equal(t, 2, flips)
}

func TestZeroArrivalRate(t *testing.T) {
	c := baseConfig()
	c.Traffic.ArrivalRate = 0
	ctx, res := run(t, c)
	assert.Zero(t, res.ExtraStats.VehiclesCreated)
	assert.Zero(t, ctx.Store().Len())
	for _, s := range ctx.Recorder().Samples() {
		assert.Zero(t, s.TotalQueue())
		assert.Zero(t, s.InStore)
	}
}

func TestSingleVehicleUnderGo(t *testing.T) {
	c := baseConfig()
	c.Control.Minutes = 1
	c.Traffic = config.Traffic{}
	c.Signal.CycleLength = 100
	ctx, err := task.NewContext(c)
	require.NoError(t, err)
	_, err = ctx.Inject(0, entity.MovementStraight, 200, config.DefaultFreeFlowSpeed)
	require.NoError(t, err)

	var exitStep int32
	var last metrics.Sample
	for sample, err := range ctx.Samples(context.Background()) {
		require.NoError(t, err)
		last = sample
		if sample.Exited == 1 {
			exitStep = sample.Step
			break
		}
	}
	bound := int32(math.Ceil((config.DefaultLaneLength+config.DefaultExitDistance)/config.DefaultFreeFlowSpeed/config.DefaultDT)) + 1
	require.NotZero(t, exitStep)
	assert.LessOrEqual(t, exitStep, bound)
	assert.Zero(t, last.MeanWait)
	assert.Zero(t, last.MeanStops)
	assert.Equal(t, int64(1), last.CumulativeExited)
}

func TestTwoVehiclesUnderStop(t *testing.T) {
	c := baseConfig()
	c.Control.Minutes = 1
	c.Traffic = config.Traffic{}
	c.Signal.CycleLength = 1e6
	ctx, err := task.NewContext(c)
	require.NoError(t, err)
	east := entity.LaneID(1)
	require.Equal(t, entity.DirectionEast, ctx.Lanes()[east].Direction)
	_, err = ctx.Inject(east, entity.MovementStraight, 0, 0)
	require.NoError(t, err)
	_, err = ctx.Inject(east, entity.MovementStraight, 50, config.DefaultFreeFlowSpeed)
	require.NoError(t, err)

	res, err := ctx.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.VehiclesCompleted)

	last, ok := ctx.Recorder().Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.QueueLength[east])
	assert.Equal(t, 2, last.TotalQueue())
	snaps := ctx.Store().Snapshots(east)
	require.Len(t, snaps, 2)
	assert.Equal(t, 0., snaps[0].Position)
	assert.GreaterOrEqual(t, snaps[1].Position, config.DefaultSafeGap)
	for _, s := range snaps {
		assert.Equal(t, entity.StateQueued, s.State)
	}
}

func TestConfigurationErrors(t *testing.T) {
	for name, mutate := range map[string]func(c *config.Config){
		"negative minutes": func(c *config.Config) { c.Control.Minutes = -1 },
		"zero cycle":       func(c *config.Config) { c.Signal.CycleLength = 0 },
		"negative cycle":   func(c *config.Config) { c.Signal.CycleLength = -5 },
		"negative rate":    func(c *config.Config) { c.Traffic.ArrivalRate = -1 },
		"infinite rate":    func(c *config.Config) { c.Traffic.ArrivalRate = math.Inf(1) },
		"too many steps":   func(c *config.Config) { c.Control.Minutes = 1e8 },
		"no workers":       func(c *config.Config) { c.Backend.WorkerCount = 0 },
		"unknown backend":  func(c *config.Config) { c.Backend.Kind = "fpga" },
	} {
		c := baseConfig()
		mutate(&c)
		_, err := task.NewContext(c)
		assert.ErrorIs(t, err, config.ErrConfiguration, name)
	}
}

func TestDegradedFallback(t *testing.T) {
	c := baseConfig()
	c.Backend = config.Backend{Kind: config.BackendDomain, WorkerCount: 1000}
	ctx, res := run(t, c)
	assert.True(t, ctx.Degraded())
	assert.Equal(t, "sequential", ctx.BackendName())
	assert.True(t, res.ExtraStats.Degraded)
	assert.Equal(t, config.BackendDomain, res.ExtraStats.RequestedBackend)

	baseline, _ := run(t, baseConfig())
	assert.Equal(t, baseline.Recorder().Samples(), ctx.Recorder().Samples())
}

func TestSamplesLazyAndResumable(t *testing.T) {
	ctx, err := task.NewContext(baseConfig())
	require.NoError(t, err)
	n := 0
	for _, err := range ctx.Samples(context.Background()) {
		require.NoError(t, err)
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, int32(5), ctx.Clock().InternalStep)

	res, err := ctx.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ctx.RuntimeConfig().Step.Total, res.ExtraStats.Steps)
	assert.Len(t, ctx.Recorder().Samples(), int(ctx.RuntimeConfig().Step.Total))

	_, err = ctx.Step()
	assert.Error(t, err)
}

func TestCancellationBetweenSteps(t *testing.T) {
	ctx, err := task.NewContext(baseConfig())
	require.NoError(t, err)
	runCtx, cancel := context.WithCancel(context.Background())
	n := 0
	for _, err := range ctx.Samples(runCtx) {
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			break
		}
		n++
		if n == 3 {
			cancel()
		}
	}
	assert.Equal(t, 3, n)
	assert.Len(t, ctx.Recorder().Samples(), 3)

	res, err := ctx.Run(runCtx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), res.ExtraStats.Steps)
}

func TestCloseStopsRun(t *testing.T) {
	ctx, err := task.NewContext(baseConfig())
	require.NoError(t, err)
	ctx.Close()
	ctx.Close()
	res, err := ctx.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.ExtraStats.Steps)
}

func TestInjectValidation(t *testing.T) {
	ctx, err := task.NewContext(baseConfig())
	require.NoError(t, err)
	_, err = ctx.Inject(99, entity.MovementStraight, 10, 0)
	assert.Error(t, err)
	_, err = ctx.Inject(0, entity.MovementStraight, 10, -1)
	assert.Error(t, err)
}
