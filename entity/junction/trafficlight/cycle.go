package trafficlight

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// phaseEpsilon 相位边界的容差（秒）
// 说明：t=step*dt存在浮点误差，例如600*0.1可能略小于60，需要容差保证恰在边界处切换
const phaseEpsilon = 1e-9

// CycleController 两相位固定周期信号灯控制器
// 功能：相位0南北放行、东西禁行，相位1相反；每cycleLength秒切换一次
// 说明：信号状态是仿真时间的纯函数，不持有任何可变状态，可被任意并行单元无锁读取
type CycleController struct {
	cycleLength float64 // 每个相位时长（秒）
}

// NewCycleController 创建固定周期信号灯控制器
// 功能：校验相位时长并创建控制器
// 参数：cycleLength-每个相位的时长（秒）
// 返回：控制器；cycleLength<=0时返回ErrConfiguration
func NewCycleController(cycleLength float64) (*CycleController, error) {
	if !(cycleLength > 0) || math.IsInf(cycleLength, 0) {
		return nil, fmt.Errorf("%w: signal.cycle_length must be > 0, got %v", config.ErrConfiguration, cycleLength)
	}
	return &CycleController{cycleLength: cycleLength}, nil
}

// CycleLength 相位时长（秒）
func (c *CycleController) CycleLength() float64 {
	return c.cycleLength
}

// Phase 计算t时刻的相位
// 算法说明：phase = floor(t/cycleLength) mod 2
func (c *CycleController) Phase(t float64) int32 {
	n := math.Floor(t/c.cycleLength + phaseEpsilon)
	return int32(math.Mod(n, 2))
}

// State 计算t时刻的通行权分配
// 参数：t-仿真时间（秒）
// 返回：信号状态
func (c *CycleController) State(t float64) entity.SignalState {
	phase := c.Phase(t)
	s := entity.SignalState{Phase: phase, NS: entity.LightGo, EW: entity.LightStop}
	if phase == 1 {
		s.NS, s.EW = entity.LightStop, entity.LightGo
	}
	return s
}
