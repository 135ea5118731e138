package entity

import (
	"errors"
	"fmt"
)

// ErrStateInvariant 状态不变量被破坏（信号灯冲突放行、车辆位置回退、速度为负等）
// 出现即说明模型实现存在缺陷，整个仿真必须中止
var ErrStateInvariant = errors.New("state invariant violation")

// Direction 进口道方位
type Direction int32

const (
	DirectionNorth Direction = iota
	DirectionEast
	DirectionSouth
	DirectionWest
)

// Directions 规范顺序的进口道列表，随机数抽取与车道编号都按此顺序进行
var Directions = []Direction{DirectionNorth, DirectionEast, DirectionSouth, DirectionWest}

func (d Direction) String() string {
	switch d {
	case DirectionNorth:
		return "N"
	case DirectionEast:
		return "E"
	case DirectionSouth:
		return "S"
	case DirectionWest:
		return "W"
	}
	return fmt.Sprintf("Direction(%d)", int32(d))
}

// Group 获取进口道所属的相位组（南北/东西）
func (d Direction) Group() Group {
	if d == DirectionNorth || d == DirectionSouth {
		return GroupNS
	}
	return GroupEW
}

// Group 相位组，同组进口道同时获得通行权，两组互相冲突
type Group int32

const (
	GroupNS Group = iota
	GroupEW
)

func (g Group) String() string {
	if g == GroupNS {
		return "NS"
	}
	return "EW"
}

// Movement 车辆在路口的行驶方向
type Movement int32

const (
	MovementStraight Movement = iota
	MovementRight
	MovementLeft
)

func (m Movement) String() string {
	switch m {
	case MovementStraight:
		return "straight"
	case MovementRight:
		return "right"
	case MovementLeft:
		return "left"
	}
	return fmt.Sprintf("Movement(%d)", int32(m))
}

// LaneKind 车道功能：直行车道或转向车道
type LaneKind int32

const (
	LaneThrough LaneKind = iota
	LaneTurn
)

// LaneID 车道编号，即车道在规范车道列表中的下标
type LaneID int32

// Lane 进口车道的静态描述
type Lane struct {
	ID        LaneID
	Direction Direction
	Kind      LaneKind
	Length    float64 // 停车线上游的车道长度（米）
}

func (l Lane) String() string {
	if l.Kind == LaneTurn {
		return fmt.Sprintf("%v-turn", l.Direction)
	}
	return l.Direction.String()
}

// NewLanes 按规范顺序创建进口车道
// 功能：每个进口方向一条车道；splitTurn为true时每个方向拆分为直行+转向两条车道
// 参数：splitTurn-是否拆分转向车道，length-车道长度
// 返回：按（方向，功能）排序的车道列表，ID等于下标
func NewLanes(splitTurn bool, length float64) []Lane {
	lanes := make([]Lane, 0, 2*len(Directions))
	for _, d := range Directions {
		lanes = append(lanes, Lane{ID: LaneID(len(lanes)), Direction: d, Kind: LaneThrough, Length: length})
		if splitTurn {
			lanes = append(lanes, Lane{ID: LaneID(len(lanes)), Direction: d, Kind: LaneTurn, Length: length})
		}
	}
	return lanes
}

// AgentState 车辆状态
type AgentState int32

const (
	StateApproaching AgentState = iota // 驶向停车线
	StateQueued                        // 停车排队
	StateCrossing                      // 已越过停车线，正在通过路口
	StateExited                        // 已驶离路口
)

func (s AgentState) String() string {
	switch s {
	case StateApproaching:
		return "APPROACHING"
	case StateQueued:
		return "QUEUED"
	case StateCrossing:
		return "CROSSING"
	case StateExited:
		return "EXITED"
	}
	return fmt.Sprintf("AgentState(%d)", int32(s))
}
