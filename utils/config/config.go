package config

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v2"
)

// ErrConfiguration 配置错误，仿真不会开始运行
var ErrConfiguration = errors.New("configuration error")

// 默认值
const (
	DefaultDT            = 0.2  // 秒
	DefaultLaneLength    = 200. // 米
	DefaultFreeFlowSpeed = 13.9 // 约50km/h
	DefaultMaxAccel      = 2.   // 米/秒²
	DefaultSafeGap       = 5.   // 米，前后车停车线方向位置差的下限
	DefaultExitDistance  = 10.  // 米，路口宽度
	DefaultBlockSize     = 256
	DefaultOutputDir     = "results"
)

// DefaultTurnRatio 直行60%，右转20%，左转20%
var DefaultTurnRatio = TurnRatio{Straight: .6, Right: .2, Left: .2}

// Parse 从YAML数据解析配置并填充默认值
// 功能：严格模式解析（未知字段报错），之后补全缺省项
// 参数：data-YAML数据
// 返回：配置对象，解析失败时返回ErrConfiguration
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	c.ApplyDefaults()
	return c, nil
}

// ApplyDefaults 补全未设置的可选配置项
func (c *Config) ApplyDefaults() {
	if c.Control.DT == 0 {
		c.Control.DT = DefaultDT
	}
	if c.Traffic.TurnRatio == nil {
		r := DefaultTurnRatio
		c.Traffic.TurnRatio = &r
	}
	if c.Road.LaneLength == 0 {
		c.Road.LaneLength = DefaultLaneLength
	}
	if c.Road.FreeFlowSpeed == 0 {
		c.Road.FreeFlowSpeed = DefaultFreeFlowSpeed
	}
	if c.Road.MaxAccel == 0 {
		c.Road.MaxAccel = DefaultMaxAccel
	}
	if c.Road.SafeGap == 0 {
		c.Road.SafeGap = DefaultSafeGap
	}
	if c.Road.ExitDistance == 0 {
		c.Road.ExitDistance = DefaultExitDistance
	}
	if c.Backend.Kind == "" {
		c.Backend.Kind = BackendSequential
	}
	if c.Backend.BlockSize == 0 {
		c.Backend.BlockSize = DefaultBlockSize
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
}

// Validate 检查配置的合法性
// 功能：收集所有非法配置项，一次性报告
// 返回：nil或包装了ErrConfiguration的错误
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if c.Control.Minutes < 0 || math.IsNaN(c.Control.Minutes) || math.IsInf(c.Control.Minutes, 0) {
		bad("control.minutes must be >= 0, got %v", c.Control.Minutes)
	}
	if !(c.Control.DT > 0) {
		bad("control.dt must be > 0, got %v", c.Control.DT)
	} else if steps := math.Round(c.Control.Minutes * 60 / c.Control.DT); steps > math.MaxInt32 {
		// 总步数必须能用int32表示
		bad("control.minutes / control.dt gives %.0f steps, at most %d allowed", steps, math.MaxInt32)
	}
	if c.Traffic.ArrivalRate < 0 || math.IsNaN(c.Traffic.ArrivalRate) || math.IsInf(c.Traffic.ArrivalRate, 0) {
		bad("traffic.arrival_rate must be >= 0, got %v", c.Traffic.ArrivalRate)
	}
	if c.Traffic.MaxVehiclesPerLane < 0 {
		bad("traffic.max_vehicles_per_lane must be >= 0, got %d", c.Traffic.MaxVehiclesPerLane)
	}
	if r := c.Traffic.TurnRatio; r != nil {
		if r.Straight < 0 || r.Right < 0 || r.Left < 0 || r.Straight+r.Right+r.Left <= 0 {
			bad("traffic.turn_ratio must be non-negative with a positive sum, got %+v", *r)
		}
	}
	if !(c.Signal.CycleLength > 0) {
		bad("signal.cycle_length must be > 0, got %v", c.Signal.CycleLength)
	}
	if !(c.Road.LaneLength > 0) {
		bad("road.lane_length must be > 0, got %v", c.Road.LaneLength)
	}
	if !(c.Road.FreeFlowSpeed > 0) {
		bad("road.free_flow_speed must be > 0, got %v", c.Road.FreeFlowSpeed)
	}
	if !(c.Road.MaxAccel > 0) {
		bad("road.max_accel must be > 0, got %v", c.Road.MaxAccel)
	}
	if !(c.Road.SafeGap > 0) {
		bad("road.safe_gap must be > 0, got %v", c.Road.SafeGap)
	}
	if !(c.Road.ExitDistance > 0) {
		bad("road.exit_distance must be > 0, got %v", c.Road.ExitDistance)
	}
	switch c.Backend.Kind {
	case BackendSequential, BackendDomain, BackendDevice:
	default:
		bad("backend.kind must be one of %s|%s|%s, got %q", BackendSequential, BackendDomain, BackendDevice, c.Backend.Kind)
	}
	if c.Backend.WorkerCount < 1 {
		bad("backend.worker_count must be >= 1, got %d", c.Backend.WorkerCount)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
}
