package vehicle

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// positionEpsilon 位置单调性检查的容差（米）
const positionEpsilon = 1e-9

// Params 运动模型参数
type Params struct {
	FreeFlowV    float64 // 自由流速度（米/秒）
	MaxA         float64 // 最大加速度（米/秒²）
	SafeGap      float64 // 跟车安全距离（米）
	ExitDistance float64 // 越过停车线后驶离路口的距离（米）
}

// NewParams 从道路配置构造运动模型参数
func NewParams(road config.Road) Params {
	return Params{
		FreeFlowV:    road.FreeFlowSpeed,
		MaxA:         road.MaxAccel,
		SafeGap:      road.SafeGap,
		ExitDistance: road.ExitDistance,
	}
}

// Advance 运动模型：计算一辆车下一步的状态
// 功能：只依据本车状态、同车道前车的快照与本车道的通行权计算下一步状态
// 参数：self-本车快照，ahead-前车快照（没有前车为nil），light-本车道通行权，p-模型参数，dt-时间步长
// 返回：下一步的本车状态
// 算法说明：
// 1. 已驶离的车辆保持不变；正在通过路口的车辆不受信号约束，加速驶离，越过驶离距离后标记为EXITED
// 2. 期望速度：v+maxA*dt，不超过自由流速度
// 3. 跟车约束：不允许驶入前车位置+安全距离以内；受约束时速度降为不超过前车速度，且不后退
// 4. 红灯约束：若本步将越过停车线，则停在停车线上，速度为0
// 5. 越过停车线进入CROSSING；速度为0进入QUEUED（排队步数+1，由行驶转为排队时停车次数+1）；否则APPROACHING
// 说明：纯函数，没有任何共享数据的读写，可被任意执行后端并行调用
func Advance(self Snapshot, ahead *Snapshot, light entity.Light, p Params, dt float64) Snapshot {
	next := self
	vDesired := math.Min(self.V+p.MaxA*dt, p.FreeFlowV)

	switch self.State {
	case entity.StateExited:
		return next
	case entity.StateCrossing:
		next.V = vDesired
		next.Position = self.Position - vDesired*dt
		if next.Position <= -p.ExitDistance {
			next.State = entity.StateExited
		}
		return next
	}

	v := vDesired
	s := self.Position - v*dt

	// 跟车
	limit := -mathutil.INF
	if ahead != nil {
		limit = ahead.Position + p.SafeGap
	}
	if s < limit {
		v = lo.Clamp(math.Min(vDesired, ahead.V), 0, vDesired)
		s = math.Min(self.Position, math.Max(self.Position-v*dt, limit))
		v = (self.Position - s) / dt
	}

	// 红灯停车
	if light == entity.LightStop && self.Position >= 0 && s < 0 {
		s, v = 0, 0
	}

	next.Position = s
	next.V = v
	switch {
	case s < 0:
		next.State = entity.StateCrossing
	case v == 0:
		next.State = entity.StateQueued
		next.WaitSteps++
		if self.State != entity.StateQueued {
			next.Stops++
		}
	default:
		next.State = entity.StateApproaching
	}
	return next
}

// Check 检查一次状态更新是否满足不变量
// 功能：速度非负、未驶离车辆位置不回退、ID与车道不变
// 参数：prev-更新前的状态，next-更新后的状态
// 返回：nil或包装了ErrStateInvariant的错误
func Check(prev, next Snapshot) error {
	if next.ID != prev.ID || next.Lane != prev.Lane {
		return fmt.Errorf("%w: vehicle %d changed identity to %d (lane %d -> %d)", entity.ErrStateInvariant, prev.ID, next.ID, prev.Lane, next.Lane)
	}
	if next.V < 0 || math.IsNaN(next.V) {
		return fmt.Errorf("%w: vehicle %d has negative velocity %v", entity.ErrStateInvariant, next.ID, next.V)
	}
	if next.State != entity.StateExited && next.Position > prev.Position+positionEpsilon {
		return fmt.Errorf("%w: vehicle %d moved backwards %.6f -> %.6f in state %v", entity.ErrStateInvariant, next.ID, prev.Position, next.Position, prev.State)
	}
	if prev.State == entity.StateExited && next.State != entity.StateExited {
		return fmt.Errorf("%w: vehicle %d left state EXITED", entity.ErrStateInvariant, next.ID)
	}
	return nil
}
