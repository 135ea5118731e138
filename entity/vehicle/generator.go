package vehicle

import (
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/randengine"
)

// Generator 车辆到达生成器
// 功能：每步为每个进口方向按泊松分布生成新车，并按转向比例分配到直行/转向车道
// 说明：每个进口方向一条独立随机数流，按规范顺序（方向顺序、步顺序）抽取，
// 生成结果与执行后端、并行度无关；到达生成本身永远串行执行
type Generator struct {
	lanes   []entity.Lane
	laneOf  map[entity.Direction][2]entity.LaneID // [方向][直行/转向] -> 车道
	engines []*randengine.Engine                  // 与entity.Directions一一对应

	mean       float64   // 每方向每步的泊松均值
	weights    []float64 // 转向比例
	split      bool      // 是否拆分转向车道
	freeFlowV  float64   // 新车初速度
	maxPerLane int       // 每车道车辆上限，0为不限

	nextID   int32
	created  int64
	rejected int64
}

// NewGenerator 创建车辆到达生成器
// 参数：rc-运行时配置，lanes-规范顺序的车道列表
// 返回：生成器实例
func NewGenerator(rc *config.RuntimeConfig, lanes []entity.Lane) *Generator {
	g := &Generator{
		lanes:      lanes,
		laneOf:     make(map[entity.Direction][2]entity.LaneID),
		engines:    make([]*randengine.Engine, len(entity.Directions)),
		mean:       rc.ArrivalMean,
		weights:    rc.All.Traffic.TurnRatio.Weights(),
		split:      rc.All.Traffic.SplitTurnLanes,
		freeFlowV:  rc.All.Road.FreeFlowSpeed,
		maxPerLane: rc.All.Traffic.MaxVehiclesPerLane,
	}
	for i := range entity.Directions {
		g.engines[i] = randengine.New(randengine.StreamSeed(rc.All.Seed, i))
	}
	for _, l := range lanes {
		ids := g.laneOf[l.Direction]
		ids[l.Kind] = l.ID
		if l.Kind == entity.LaneThrough && !g.split {
			ids[entity.LaneTurn] = l.ID
		}
		g.laneOf[l.Direction] = ids
	}
	return g
}

// Generate 生成本步到达的车辆
// 功能：为每个进口方向抽取到达数与每辆车的转向，超过车道上限的车辆被拒绝
// 参数：step-当前步数，t-当前仿真时间，occupancy-各车道当前车辆数
// 返回：新生成的车辆（按ID升序），被拒绝的车辆数
// 算法说明：
// 1. 按方向顺序，先抽取到达数，再依次抽取每辆车的转向（抽取次数与是否被拒绝无关）
// 2. 根据转向确定车道，车道已满则拒绝
// 3. 接受的车辆按顺序分配递增的ID
func (g *Generator) Generate(step int32, t float64, occupancy map[entity.LaneID]int) (spawned []*Vehicle, rejected int) {
	if g.mean <= 0 {
		return nil, 0
	}
	added := make(map[entity.LaneID]int)
	for i, d := range entity.Directions {
		e := g.engines[i]
		n := e.Poisson(g.mean)
		for k := 0; k < n; k++ {
			movement := entity.Movement(e.DiscreteDistribution(g.weights))
			lane := g.lanes[g.laneFor(d, movement)]
			if g.maxPerLane > 0 && occupancy[lane.ID]+added[lane.ID] >= g.maxPerLane {
				rejected++
				continue
			}
			added[lane.ID]++
			spawned = append(spawned, g.Spawn(lane, movement, lane.Length, g.freeFlowV, step, t))
		}
	}
	g.rejected += int64(rejected)
	if rejected > 0 {
		log.Debugf("step %d: %d arrivals rejected by lane capacity %d", step, rejected, g.maxPerLane)
	}
	return
}

// Spawn 在指定车道位置直接生成一辆车
// 功能：分配下一个ID并创建车辆，用于到达过程与场景构造
// 参数：lane-车道，movement-转向，position-到停车线距离，v-初速度，step/t-生成时刻
func (g *Generator) Spawn(lane entity.Lane, movement entity.Movement, position, v float64, step int32, t float64) *Vehicle {
	veh := newVehicle(g.nextID, lane, movement, v, step, t)
	veh.runtime.Position = position
	veh.node.S = position
	g.nextID++
	g.created++
	return veh
}

func (g *Generator) laneFor(d entity.Direction, m entity.Movement) entity.LaneID {
	ids := g.laneOf[d]
	if m == entity.MovementStraight {
		return ids[entity.LaneThrough]
	}
	return ids[entity.LaneTurn]
}

// Created 累计生成的车辆数
func (g *Generator) Created() int64 {
	return g.created
}

// Rejected 累计因车道已满被拒绝的车辆数
func (g *Generator) Rejected() int64 {
	return g.rejected
}
