package vehicle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
)

var params = vehicle.Params{FreeFlowV: 10, MaxA: 2, SafeGap: 5, ExitDistance: 10}

const dt = 0.5

func TestAdvanceFreeFlow(t *testing.T) {
	self := vehicle.Snapshot{ID: 1, Position: 100, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, nil, entity.LightGo, params, dt)
	assert.InDelta(t, 95, next.Position, 1e-9)
	assert.InDelta(t, 10, next.V, 1e-9)
	assert.Equal(t, entity.StateApproaching, next.State)
	assert.Zero(t, next.WaitSteps)
}

func TestAdvanceAccelerationBounded(t *testing.T) {
	self := vehicle.Snapshot{ID: 1, Position: 100, V: 0, State: entity.StateQueued}
	next := vehicle.Advance(self, nil, entity.LightGo, params, dt)
	assert.InDelta(t, 1, next.V, 1e-9)
	assert.InDelta(t, 99.5, next.Position, 1e-9)
	assert.Equal(t, entity.StateApproaching, next.State)
}

func TestAdvanceStopAtLine(t *testing.T) {
	self := vehicle.Snapshot{ID: 1, Position: 3, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, nil, entity.LightStop, params, dt)
	assert.Equal(t, 0., next.Position)
	assert.Equal(t, 0., next.V)
	assert.Equal(t, entity.StateQueued, next.State)
	assert.Equal(t, int32(1), next.WaitSteps)
	assert.Equal(t, int32(1), next.Stops)

	// 继续等待：排队步数增加，停车次数不变
	again := vehicle.Advance(next, nil, entity.LightStop, params, dt)
	assert.Equal(t, 0., again.Position)
	assert.Equal(t, int32(2), again.WaitSteps)
	assert.Equal(t, int32(1), again.Stops)
}

func TestAdvanceStopFarFromLineKeepsMoving(t *testing.T) {
	self := vehicle.Snapshot{ID: 1, Position: 50, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, nil, entity.LightStop, params, dt)
	assert.InDelta(t, 45, next.Position, 1e-9)
	assert.Equal(t, entity.StateApproaching, next.State)
}

func TestAdvanceCrossAndExit(t *testing.T) {
	self := vehicle.Snapshot{ID: 1, Position: 2, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, nil, entity.LightGo, params, dt)
	assert.InDelta(t, -3, next.Position, 1e-9)
	assert.Equal(t, entity.StateCrossing, next.State)

	// 通过路口时不受红灯影响
	next = vehicle.Advance(next, nil, entity.LightStop, params, dt)
	assert.InDelta(t, -8, next.Position, 1e-9)
	assert.Equal(t, entity.StateCrossing, next.State)

	next = vehicle.Advance(next, nil, entity.LightStop, params, dt)
	assert.Equal(t, entity.StateExited, next.State)

	exited := vehicle.Advance(next, nil, entity.LightGo, params, dt)
	assert.Equal(t, next, exited)
}

func TestAdvanceCarFollowing(t *testing.T) {
	ahead := vehicle.Snapshot{ID: 1, Position: 20, V: 2, State: entity.StateApproaching}
	self := vehicle.Snapshot{ID: 2, Position: 27, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, &ahead, entity.LightGo, params, dt)
	// 期望速度降到前车速度：27-2*0.5=26 >= 20+5
	assert.InDelta(t, 26, next.Position, 1e-9)
	assert.InDelta(t, 2, next.V, 1e-9)
	assert.Equal(t, entity.StateApproaching, next.State)

	// 前车静止且已到安全距离：原地排队
	ahead = vehicle.Snapshot{ID: 1, Position: 0, V: 0, State: entity.StateQueued}
	self = vehicle.Snapshot{ID: 2, Position: 5, V: 0, State: entity.StateQueued, WaitSteps: 3}
	next = vehicle.Advance(self, &ahead, entity.LightGo, params, dt)
	assert.Equal(t, 5., next.Position)
	assert.Equal(t, 0., next.V)
	assert.Equal(t, entity.StateQueued, next.State)
	assert.Equal(t, int32(4), next.WaitSteps)
}

func TestAdvanceNeverCloserThanSafeGap(t *testing.T) {
	ahead := vehicle.Snapshot{ID: 1, Position: 10, V: 10, State: entity.StateApproaching}
	self := vehicle.Snapshot{ID: 2, Position: 16, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, &ahead, entity.LightGo, params, dt)
	assert.GreaterOrEqual(t, next.Position, ahead.Position+params.SafeGap-1e-9)
	assert.LessOrEqual(t, next.Position, self.Position)
	assert.GreaterOrEqual(t, next.V, 0.)
}

func TestAdvanceSamePositionHoldsFollower(t *testing.T) {
	ahead := vehicle.Snapshot{ID: 1, Position: 200, V: 10, State: entity.StateApproaching}
	self := vehicle.Snapshot{ID: 2, Position: 200, V: 10, State: entity.StateApproaching}
	next := vehicle.Advance(self, &ahead, entity.LightGo, params, dt)
	assert.Equal(t, 200., next.Position)
	assert.Equal(t, 0., next.V)
	assert.NoError(t, vehicle.Check(self, next))
}

func TestCheck(t *testing.T) {
	prev := vehicle.Snapshot{ID: 1, Position: 10, V: 1}
	assert.NoError(t, vehicle.Check(prev, vehicle.Snapshot{ID: 1, Position: 9, V: 1}))
	assert.ErrorIs(t, vehicle.Check(prev, vehicle.Snapshot{ID: 1, Position: 11, V: 1}), entity.ErrStateInvariant)
	assert.ErrorIs(t, vehicle.Check(prev, vehicle.Snapshot{ID: 1, Position: 9, V: -1}), entity.ErrStateInvariant)
	assert.ErrorIs(t, vehicle.Check(prev, vehicle.Snapshot{ID: 2, Position: 9, V: 1}), entity.ErrStateInvariant)
}
