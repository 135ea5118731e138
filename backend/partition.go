package backend

import (
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
)

// LaneWork 一条车道在一步中的计算任务
type LaneWork struct {
	Lane   entity.LaneID
	Light  entity.Light       // 本步该车道的通行权
	Agents []vehicle.Snapshot // 步开始时的车辆快照，从停车线向上游排序
}

// Unit 一个执行单元在一步中负责的全部车道
type Unit struct {
	Worker int
	Lanes  []LaneWork
}

// Len 执行单元内的车辆数
func (u Unit) Len() int {
	n := 0
	for _, l := range u.Lanes {
		n += len(l.Agents)
	}
	return n
}

// Partition 按车道划分计算任务
// 功能：车道i固定分配给执行单元 i mod workers，车道从不拆分
// 参数：work-按车道编号排序的车道任务，workers-执行单元数
// 返回：workers个执行单元（可能有空单元），单元内车道保持编号顺序
// 说明：每步重新划分，但车道到执行单元的映射在整个运行期间不变；
// 各单元车道互不相交，并集为全部车道
func Partition(work []LaneWork, workers int) []Unit {
	if workers < 1 {
		workers = 1
	}
	units := make([]Unit, workers)
	for i := range units {
		units[i].Worker = i
	}
	for i, w := range work {
		u := &units[i%workers]
		u.Lanes = append(u.Lanes, w)
	}
	return units
}

// runLane 计算一条车道上所有车辆的下一步状态
// 说明：第i辆车的前车为第i-1辆车，均读取步开始时的快照
func runLane(w LaneWork, p vehicle.Params, dt float64) ([]vehicle.Snapshot, error) {
	next := make([]vehicle.Snapshot, len(w.Agents))
	for i := range w.Agents {
		if err := advanceOne(w, i, p, dt, &next[i]); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// advanceOne 计算车道上第i辆车的下一步状态并检查不变量，结果写入out
func advanceOne(w LaneWork, i int, p vehicle.Params, dt float64, out *vehicle.Snapshot) error {
	var ahead *vehicle.Snapshot
	if i > 0 {
		ahead = &w.Agents[i-1]
	}
	*out = vehicle.Advance(w.Agents[i], ahead, w.Light, p, dt)
	if err := vehicle.Check(w.Agents[i], *out); err != nil {
		log.Errorf("lane %d: %v", w.Lane, err)
		return err
	}
	return nil
}
