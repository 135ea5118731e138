package task

import (
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// Result 一次运行的汇总
type Result struct {
	Backend            string        `json:"backend"` // 实际使用的执行后端
	Config             config.Config `json:"config"`
	WallTimeSeconds    float64       `json:"wall_time_seconds"`
	TotalSimulatedTime float64       `json:"total_simulated_time"` // 秒

	VehiclesCompleted   int64   `json:"vehicles_completed"`
	AvgTravelTime       float64 `json:"avg_travel_time"` // 秒
	AvgStopsPerVehicle  float64 `json:"avg_stops_per_vehicle"`
	ThroughputVehPerMin float64 `json:"throughput_veh_per_min"`

	ExtraStats ExtraStats `json:"extra_stats"`
}

// ExtraStats 附加统计
type ExtraStats struct {
	Steps            int32          `json:"steps"`
	AvgWaitTime      float64        `json:"avg_wait_time"` // 秒
	VehiclesCreated  int64          `json:"vehicles_created"`
	VehiclesRejected int64          `json:"vehicles_rejected"`
	VehiclesInStore  int            `json:"vehicles_in_store"`
	MaxQueuePerLane  map[string]int `json:"max_queue_per_lane"`
	WorkerCount      int            `json:"worker_count"`
	RequestedBackend string         `json:"requested_backend"`
	Degraded         bool           `json:"degraded"`
}

// Result 汇总当前已完成的步
// 参数：wallTime-墙钟耗时（秒）
func (ctx *Context) Result(wallTime float64) *Result {
	simTime := ctx.clock.T - float64(ctx.clock.START_STEP)*ctx.clock.DT
	s := ctx.recorder.Summary(simTime)
	return &Result{
		Backend:             ctx.backend.Name(),
		Config:              ctx.runtimeConfig.All,
		WallTimeSeconds:     wallTime,
		TotalSimulatedTime:  simTime,
		VehiclesCompleted:   s.VehiclesCompleted,
		AvgTravelTime:       s.AvgTravelTime,
		AvgStopsPerVehicle:  s.AvgStopsPerVehicle,
		ThroughputVehPerMin: s.ThroughputVehPerMin,
		ExtraStats: ExtraStats{
			Steps:            ctx.clock.InternalStep - ctx.clock.START_STEP,
			AvgWaitTime:      s.AvgWaitTime,
			VehiclesCreated:  ctx.generator.Created(),
			VehiclesRejected: ctx.generator.Rejected(),
			VehiclesInStore:  ctx.store.Len(),
			MaxQueuePerLane:  s.MaxQueuePerLane,
			WorkerCount:      ctx.workers,
			RequestedBackend: ctx.runtimeConfig.All.Backend.Kind,
			Degraded:         ctx.degraded,
		},
	}
}
