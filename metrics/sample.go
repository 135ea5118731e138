package metrics

import "fmt"

// Sample 一步的指标记录
// 说明：在合并阶段完成后生成，只反映完整步的状态
type Sample struct {
	Step     int32   `json:"step"`
	T        float64 `json:"t"`     // 步结束时的仿真时间（秒）
	Phase    int32   `json:"phase"` // 本步的信号相位
	Arrived  int     `json:"arrived"`
	Rejected int     `json:"rejected"` // 因车道已满被拒绝的到达数
	Exited   int     `json:"exited"`   // 本步驶离的车辆数

	CumulativeCreated int64 `json:"cumulative_created"`
	CumulativeExited  int64 `json:"cumulative_exited"`
	InStore           int   `json:"in_store"`

	QueueLength []int `json:"queue_length"` // 按车道编号排列的QUEUED车辆数

	MeanWait       float64 `json:"mean_wait"`        // 已驶离车辆的平均排队时间（秒）
	MeanTravelTime float64 `json:"mean_travel_time"` // 已驶离车辆的平均行程时间（秒）
	MeanStops      float64 `json:"mean_stops"`       // 已驶离车辆的平均停车次数
}

// TotalQueue 所有车道排队车辆总数
func (s Sample) TotalQueue() int {
	n := 0
	for _, q := range s.QueueLength {
		n += q
	}
	return n
}

func (s Sample) String() string {
	return fmt.Sprintf("Sample{step=%d, t=%.1f, phase=%d, exited=%d/%d, in_store=%d, queue=%v, wait=%.2fs}",
		s.Step, s.T, s.Phase, s.Exited, s.CumulativeExited, s.InStore, s.QueueLength, s.MeanWait)
}
