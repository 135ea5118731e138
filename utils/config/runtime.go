package config

import "math"

// RuntimeConfig 运行时配置
// 功能：存储校验后的配置以及由其推导出的运行参数
// 说明：仿真各组件只从RuntimeConfig读取参数，运行期间不可修改
type RuntimeConfig struct {
	All  Config      // 全部配置
	C    Control     // 全局控制配置
	Step ControlStep // 时间控制

	// 每个进口道每步到达车辆数的泊松均值：arrival_rate/3600*dt
	ArrivalMean float64
}

// NewRuntimeConfig 校验配置并推导运行参数
// 功能：填充默认值、校验配置、计算总步数与每步到达均值
// 参数：config-原始配置对象
// 返回：运行时配置指针；配置非法时返回ErrConfiguration
// 算法说明：
// 1. 总步数 = round(minutes*60/dt)，四舍五入避免浮点误差少算一步
// 2. 到达均值 = arrival_rate(辆/小时)/3600*dt
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	rc.Step = ControlStep{
		Start:    0,
		Total:    int32(math.Round(config.Control.Minutes * 60 / config.Control.DT)),
		Interval: config.Control.DT,
	}
	rc.ArrivalMean = config.Traffic.ArrivalRate / 3600 * config.Control.DT

	return rc, nil
}
