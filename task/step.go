package task

import (
	"context"
	"flag"
	"fmt"
	"iter"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/backend"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/metrics"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：推进时钟、计算信号状态、生成到达车辆
// 算法说明：
// 1. 更新时钟：增加内部步数并计算当前时间
// 2. 心跳日志：定期输出当前步数与时间
// 3. 信号灯：按当前时间计算通行权并检查互斥
// 4. 到达：按各车道当前车辆数生成新车并插入存储（串行，保证随机数抽取顺序）
func (ctx *Context) prepare() error {
	t := ctx.clock.Advance()
	step := ctx.clock.InternalStep

	if *heartBeatInterval > 0 && step%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			step,
			hour, minute, second,
		)
	}

	ctx.signalState = ctx.signal.State(t)
	if err := ctx.signalState.Validate(); err != nil {
		log.Errorf("step %d: %v", step, err)
		return err
	}

	spawned, rejected := ctx.generator.Generate(step, t, ctx.store.Occupancy())
	if err := ctx.store.Insert(spawned...); err != nil {
		log.Errorf("step %d: %v", step, err)
		return err
	}
	ctx.arrived, ctx.rejected = len(spawned), rejected
	return nil
}

// update 更新阶段，每步执行一次
// 功能：划分车道、由执行后端计算所有车辆的新状态、合并并移除已驶离车辆
// 返回：本步驶离的车辆
// 说明：后端只读取划分时复制的快照，合并在后端返回（同步屏障）之后进行
func (ctx *Context) update() ([]*vehicle.Vehicle, error) {
	work := lo.Map(ctx.lanes, func(l entity.Lane, _ int) backend.LaneWork {
		return backend.LaneWork{
			Lane:   l.ID,
			Light:  ctx.signalState.Light(l.Direction),
			Agents: ctx.store.Snapshots(l.ID),
		}
	})
	units := backend.Partition(work, ctx.workers)
	out, err := ctx.backend.Compute(units, ctx.params, ctx.clock.DT)
	if err != nil {
		return nil, err
	}
	for _, next := range out {
		if err := ctx.store.Apply(next); err != nil {
			return nil, err
		}
	}
	ctx.store.Resort()
	return ctx.store.RemoveExited(), nil
}

// Step 执行一步
// 功能：prepare、update后记录指标，并检查车辆守恒
// 返回：本步指标；出现不变量错误时返回包装了ErrStateInvariant的错误，仿真不可继续
func (ctx *Context) Step() (metrics.Sample, error) {
	if ctx.clock.Done() {
		return metrics.Sample{}, fmt.Errorf("simulation already finished at step %d", ctx.clock.InternalStep)
	}
	if err := ctx.prepare(); err != nil {
		return metrics.Sample{}, err
	}
	exited, err := ctx.update()
	if err != nil {
		log.Errorf("step %d: %v", ctx.clock.InternalStep, err)
		return metrics.Sample{}, err
	}

	created := ctx.generator.Created()
	if created != ctx.store.Exited()+int64(ctx.store.Len()) {
		err := fmt.Errorf("%w: created %d != exited %d + in store %d",
			entity.ErrStateInvariant, created, ctx.store.Exited(), ctx.store.Len())
		log.Errorf("step %d: %v", ctx.clock.InternalStep, err)
		return metrics.Sample{}, err
	}

	return ctx.recorder.Record(metrics.Observation{
		Step:     ctx.clock.InternalStep,
		T:        ctx.clock.T,
		Phase:    ctx.signalState.Phase,
		Arrived:  ctx.arrived,
		Rejected: ctx.rejected,
		Created:  created,
		InStore:  ctx.store.Len(),
		Queues:   ctx.queueLengths(),
		Exited:   exited,
	}), nil
}

// Samples 按需逐步运行仿真并产出每步指标
// 功能：每次迭代执行一步；序列在到达结束步、Close或出错后结束
// 参数：runCtx-取消信号，只在步与步之间检查
// 返回：(指标, 错误)序列，出错时最后一项携带错误
// 说明：序列不可重放；提前停止迭代后再次调用会从下一步继续，重新开始需要用同一配置新建Context
func (ctx *Context) Samples(runCtx context.Context) iter.Seq2[metrics.Sample, error] {
	return func(yield func(metrics.Sample, error) bool) {
		for !ctx.clock.Done() && !ctx.closed.Load() {
			if err := runCtx.Err(); err != nil {
				log.Warnf("run cancelled at step %d: %v", ctx.clock.InternalStep, err)
				yield(metrics.Sample{}, err)
				return
			}
			sample, err := ctx.Step()
			if err != nil {
				yield(sample, err)
				return
			}
			if !yield(sample, nil) {
				return
			}
		}
	}
}

// Run 运行到结束步
// 参数：runCtx-取消信号
// 返回：运行汇总；被取消或出错时同时返回已完成部分的汇总与错误
func (ctx *Context) Run(runCtx context.Context) (*Result, error) {
	timer := metrics.StartTimer()
	var runErr error
	for _, err := range ctx.Samples(runCtx) {
		if err != nil {
			runErr = err
			break
		}
	}
	result := ctx.Result(timer.Stop().Seconds())
	log.Infof("engine complete: %d steps, %d vehicles completed, %.3fs wall time",
		ctx.clock.InternalStep, result.VehiclesCompleted, result.WallTimeSeconds)
	return result, runErr
}
