// 扩展性实验：以同一基础配置为起点，只改变一个参数重复运行仿真
package experiment

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/task"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// 可变参数名
const (
	ParamWorkerCount = "worker_count"
	ParamBlockSize   = "block_size"
	ParamArrivalRate = "arrival_rate"
	ParamMaxVehicles = "max_vehicles_per_lane"
)

var setters = map[string]func(c *config.Config, v int){
	ParamWorkerCount: func(c *config.Config, v int) { c.Backend.WorkerCount = v },
	ParamBlockSize:   func(c *config.Config, v int) { c.Backend.BlockSize = v },
	ParamArrivalRate: func(c *config.Config, v int) { c.Traffic.ArrivalRate = float64(v) },
	ParamMaxVehicles: func(c *config.Config, v int) { c.Traffic.MaxVehiclesPerLane = v },
}

// Params 支持的可变参数名
func Params() []string {
	keys := lo.Keys(setters)
	slices.Sort(keys)
	return keys
}

// RunSingle 运行一次完整仿真
// 返回：运行汇总；被取消或中止时同时返回已完成部分的汇总与错误，配置非法时汇总为nil
func RunSingle(runCtx context.Context, c config.Config) (*task.Result, error) {
	ctx, err := task.NewContext(c)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()
	return ctx.Run(runCtx)
}

// RunScaling 扩展性实验
// 功能：依次把param设为values中的每个值并运行，其余配置与base相同
// 参数：runCtx-取消信号，base-基础配置，param-参数名，values-参数取值
// 返回：与values一一对应的运行汇总；参数名未知时返回ErrConfiguration；
// 某次运行被取消或中止时，返回此前的汇总加上该次已完成部分的汇总
// 说明：各次运行串行执行，墙钟时间互不干扰
func RunScaling(runCtx context.Context, base config.Config, param string, values []int) ([]*task.Result, error) {
	set, ok := setters[param]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scaling parameter %q (one of %s)", config.ErrConfiguration, param, strings.Join(Params(), ", "))
	}
	results := make([]*task.Result, 0, len(values))
	for _, v := range values {
		c := base
		set(&c, v)
		res, err := RunSingle(runCtx, c)
		if res != nil && err != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, fmt.Errorf("%s=%d: %w", param, v, err)
		}
		log.Infof("%s=%d: backend %s, %d vehicles completed, %.3fs wall time",
			param, v, res.Backend, res.VehiclesCompleted, res.WallTimeSeconds)
		results = append(results, res)
	}
	return results, nil
}

// RunBackends 用同一配置依次运行多个执行后端
// 参数：runCtx-取消信号，base-基础配置，kinds-后端名称
// 返回：与kinds一一对应的运行汇总；出错时与RunScaling一样保留已完成部分的汇总
func RunBackends(runCtx context.Context, base config.Config, kinds []string) ([]*task.Result, error) {
	results := make([]*task.Result, 0, len(kinds))
	for _, kind := range kinds {
		c := base
		c.Backend.Kind = kind
		res, err := RunSingle(runCtx, c)
		if res != nil && err != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, fmt.Errorf("backend %s: %w", kind, err)
		}
		log.Infof("backend %s: %d vehicles completed, %.3fs wall time", res.Backend, res.VehiclesCompleted, res.WallTimeSeconds)
		results = append(results, res)
	}
	return results, nil
}

// Speedup 以第一个结果为基准计算各次运行的加速比
func Speedup(results []*task.Result) []float64 {
	if len(results) == 0 {
		return nil
	}
	base := results[0].WallTimeSeconds
	return lo.Map(results, func(r *task.Result, _ int) float64 {
		if r.WallTimeSeconds == 0 {
			return 0
		}
		return base / r.WallTimeSeconds
	})
}
