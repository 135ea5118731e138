package vehicle

import (
	"fmt"

	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/container"
)

// Snapshot 车辆运动状态
// 功能：运动模型的输入与输出，值类型，并行阶段只读取步开始时的快照
type Snapshot struct {
	ID        int32             `json:"id"`
	Lane      entity.LaneID     `json:"lane"`
	Movement  entity.Movement   `json:"movement"`
	Position  float64           `json:"position"` // 到停车线的距离（米），越过停车线后为负
	V         float64           `json:"v"`        // 速度（米/秒）
	State     entity.AgentState `json:"state"`
	WaitSteps int32             `json:"wait_steps"` // 处于QUEUED状态的步数
	Stops     int32             `json:"stops"`      // 由行驶转为排队的次数
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Vehicle{ID=%d, Lane=%d, S=%.3f, V=%.3f, %v}", s.ID, s.Lane, s.Position, s.V, s.State)
}

// Vehicle 仿真中的车辆
// 功能：保存车辆的运行时状态与所在车道链表节点
// 说明：runtime只在合并阶段由Store写入，运动模型从不直接修改Vehicle
type Vehicle struct {
	runtime Snapshot

	createdStep int32   // 生成时的步数
	createdT    float64 // 生成时的仿真时间（秒）

	node *container.ListNode[*Vehicle] // 所在车道链表中的节点
}

// newVehicle 创建车辆
func newVehicle(id int32, lane entity.Lane, movement entity.Movement, v float64, step int32, t float64) *Vehicle {
	veh := &Vehicle{
		runtime: Snapshot{
			ID:       id,
			Lane:     lane.ID,
			Movement: movement,
			Position: lane.Length,
			V:        v,
			State:    entity.StateApproaching,
		},
		createdStep: step,
		createdT:    t,
	}
	veh.node = &container.ListNode[*Vehicle]{S: veh.runtime.Position, Value: veh}
	return veh
}

func (v *Vehicle) ID() int32 {
	return v.runtime.ID
}

func (v *Vehicle) V() float64 {
	return v.runtime.V
}

func (v *Vehicle) Lane() entity.LaneID {
	return v.runtime.Lane
}

func (v *Vehicle) Position() float64 {
	return v.runtime.Position
}

func (v *Vehicle) State() entity.AgentState {
	return v.runtime.State
}

// Snapshot 获取车辆当前状态的副本
func (v *Vehicle) Snapshot() Snapshot {
	return v.runtime
}

// CreatedT 车辆生成时的仿真时间（秒）
func (v *Vehicle) CreatedT() float64 {
	return v.createdT
}

// CreatedStep 车辆生成时的步数
func (v *Vehicle) CreatedStep() int32 {
	return v.createdStep
}

func (v *Vehicle) String() string {
	return v.runtime.String()
}
