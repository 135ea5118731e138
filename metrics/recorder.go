package metrics

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
)

// Observation 一步合并完成后交给Recorder的原始数据
type Observation struct {
	Step     int32
	T        float64
	Phase    int32
	Arrived  int
	Rejected int
	Created  int64 // 累计生成的车辆数
	InStore  int
	Queues   []int              // 按车道编号排列的QUEUED车辆数
	Exited   []*vehicle.Vehicle // 本步驶离并被移除的车辆
}

// Recorder 指标记录器
// 功能：每步生成一条Sample并累计驶离车辆的等待时间、行程时间、停车次数
// 说明：只保留聚合值，车辆驶离后不再保留其逐车数据；只由驱动循环在步与步之间调用
type Recorder struct {
	lanes []entity.Lane
	dt    float64

	samples []Sample

	exited    int64
	waitSum   float64 // 秒
	travelSum float64 // 秒
	stopsSum  int64
	maxQueue  []int
}

// NewRecorder 创建指标记录器
// 参数：lanes-规范顺序的车道列表，dt-时间步长（用于把排队步数换算为秒）
func NewRecorder(lanes []entity.Lane, dt float64) *Recorder {
	return &Recorder{
		lanes:    lanes,
		dt:       dt,
		maxQueue: make([]int, len(lanes)),
	}
}

// Record 记录一步
// 功能：累计驶离车辆数据，更新最大排队长度，生成本步Sample
// 参数：o-本步观测
// 返回：本步Sample
func (r *Recorder) Record(o Observation) Sample {
	for _, v := range o.Exited {
		s := v.Snapshot()
		r.exited++
		r.waitSum += float64(s.WaitSteps) * r.dt
		r.travelSum += o.T - v.CreatedT()
		r.stopsSum += int64(s.Stops)
	}
	for i, q := range o.Queues {
		r.maxQueue[i] = max(r.maxQueue[i], q)
	}
	sample := Sample{
		Step:              o.Step,
		T:                 o.T,
		Phase:             o.Phase,
		Arrived:           o.Arrived,
		Rejected:          o.Rejected,
		Exited:            len(o.Exited),
		CumulativeCreated: o.Created,
		CumulativeExited:  r.exited,
		InStore:           o.InStore,
		QueueLength:       append([]int(nil), o.Queues...),
		MeanWait:          r.mean(r.waitSum),
		MeanTravelTime:    r.mean(r.travelSum),
		MeanStops:         r.mean(float64(r.stopsSum)),
	}
	r.samples = append(r.samples, sample)
	log.Tracef("%v", sample)
	return sample
}

func (r *Recorder) mean(sum float64) float64 {
	if r.exited == 0 {
		return 0
	}
	return sum / float64(r.exited)
}

// Samples 已记录的全部Sample，按步顺序
func (r *Recorder) Samples() []Sample {
	return r.samples
}

// Last 最近一条Sample，尚无记录时返回false
func (r *Recorder) Last() (Sample, bool) {
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}

// Summary 运行汇总
type Summary struct {
	VehiclesCompleted   int64          `json:"vehicles_completed"`
	AvgWaitTime         float64        `json:"avg_wait_time"`
	AvgTravelTime       float64        `json:"avg_travel_time"`
	AvgStopsPerVehicle  float64        `json:"avg_stops_per_vehicle"`
	ThroughputVehPerMin float64        `json:"throughput_veh_per_min"`
	MaxQueuePerLane     map[string]int `json:"max_queue_per_lane"`
}

// Summary 汇总整个运行的指标
// 参数：simTime-已仿真的时间（秒）
// 返回：汇总结果，simTime为0时吞吐量为0
func (r *Recorder) Summary(simTime float64) Summary {
	s := Summary{
		VehiclesCompleted:  r.exited,
		AvgWaitTime:        r.mean(r.waitSum),
		AvgTravelTime:      r.mean(r.travelSum),
		AvgStopsPerVehicle: r.mean(float64(r.stopsSum)),
		MaxQueuePerLane: lo.SliceToMap(r.lanes, func(l entity.Lane) (string, int) {
			return l.String(), r.maxQueue[l.ID]
		}),
	}
	if simTime > 0 {
		s.ThroughputVehPerMin = float64(r.exited) / (simTime / 60)
	}
	return s
}
