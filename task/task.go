package task

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/backend"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/clock"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/metrics"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// Context 仿真任务上下文
// 功能：包含一次仿真运行的所有组件与状态：时钟、信号灯、到达生成器、车辆存储、执行后端、指标记录器
// 说明：驱动循环是唯一的写入者；执行后端在一步内只读取步开始时的快照
type Context struct {
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 进口车道
	lanes []entity.Lane
	// 信号灯控制器
	signal *trafficlight.CycleController
	// 车辆到达生成器
	generator *vehicle.Generator
	// 车辆存储
	store *vehicle.Store
	// 运动模型参数
	params vehicle.Params

	// 执行后端
	backend backend.Backend
	// 执行单元数
	workers int
	// 请求的后端不可用，已退回顺序后端
	degraded bool

	// 指标记录器
	recorder *metrics.Recorder

	// 本步状态，由prepare写入，update与record读取
	signalState entity.SignalState
	arrived     int
	rejected    int
}

// NewContext 创建新的仿真任务上下文
// 功能：校验配置并初始化仿真的所有组件
// 参数：c-配置对象
// 返回：初始化完成的Context；配置非法时返回ErrConfiguration
// 算法说明：
// 1. 填充默认值、校验配置并推导运行参数
// 2. 创建时钟、信号灯、车道、到达生成器、车辆存储与指标记录器
// 3. 创建执行后端，不可用时退回顺序后端并标记为降级模式
func NewContext(c config.Config) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		runtimeConfig: rc,
		workers:       rc.All.Backend.WorkerCount,
		params:        vehicle.NewParams(rc.All.Road),
	}
	ctx.clock = clock.New(rc.Step)
	if ctx.signal, err = trafficlight.NewCycleController(rc.All.Signal.CycleLength); err != nil {
		return nil, err
	}
	ctx.lanes = entity.NewLanes(rc.All.Traffic.SplitTurnLanes, rc.All.Road.LaneLength)
	ctx.generator = vehicle.NewGenerator(rc, ctx.lanes)
	ctx.store = vehicle.NewStore(ctx.lanes)
	ctx.recorder = metrics.NewRecorder(ctx.lanes, rc.Step.Interval)

	ctx.backend, err = backend.New(rc.All.Backend)
	if errors.Is(err, backend.ErrUnavailable) {
		log.Warnf("%v, falling back to sequential backend (degraded mode)", err)
		ctx.backend = backend.NewSequential()
		ctx.degraded = true
	} else if err != nil {
		return nil, err
	}

	log.Infof("Lane: %v", len(ctx.lanes))
	log.Infof("Step: %d x %.3fs", rc.Step.Total, rc.Step.Interval)
	log.Infof("Backend: %s, workers: %d", ctx.backend.Name(), ctx.workers)
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Lanes() []entity.Lane {
	return ctx.lanes
}

func (ctx *Context) Store() *vehicle.Store {
	return ctx.store
}

func (ctx *Context) Recorder() *metrics.Recorder {
	return ctx.recorder
}

// BackendName 实际使用的执行后端名称
func (ctx *Context) BackendName() string {
	return ctx.backend.Name()
}

// Degraded 是否因请求的后端不可用而退回顺序后端
func (ctx *Context) Degraded() bool {
	return ctx.degraded
}

// Inject 在当前时刻直接向车道放入一辆车
// 功能：用于构造场景；车辆与到达生成器产生的车辆共享ID序列并计入生成总数
// 参数：lane-车道编号，movement-转向，position-到停车线距离，v-初速度
// 返回：新车辆；车道不存在或参数非法时返回错误
// 说明：只能在步与步之间调用
func (ctx *Context) Inject(lane entity.LaneID, movement entity.Movement, position, v float64) (*vehicle.Vehicle, error) {
	if int(lane) < 0 || int(lane) >= len(ctx.lanes) {
		return nil, fmt.Errorf("no lane %d", lane)
	}
	if v < 0 || position < 0 {
		return nil, fmt.Errorf("%w: injected vehicle must have position >= 0 and v >= 0, got %v, %v", entity.ErrStateInvariant, position, v)
	}
	veh := ctx.generator.Spawn(ctx.lanes[lane], movement, position, v, ctx.clock.InternalStep, ctx.clock.T)
	if err := ctx.store.Insert(veh); err != nil {
		return nil, err
	}
	return veh, nil
}

// Close 关闭仿真，正在进行的步完成后停止
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if err := ctx.backend.Close(); err != nil {
		log.Warnf("close backend: %v", err)
	}
}

// queueLengths 各车道QUEUED车辆数
func (ctx *Context) queueLengths() []int {
	return lo.Map(ctx.lanes, func(l entity.Lane, _ int) int {
		return ctx.store.QueueLength(l.ID)
	})
}
