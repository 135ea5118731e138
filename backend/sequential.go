package backend

import "github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"

// Sequential 顺序后端，在调用者协程中依次计算每个执行单元
type Sequential struct{}

func NewSequential() *Sequential {
	return &Sequential{}
}

func (*Sequential) Name() string {
	return "sequential"
}

func (*Sequential) Compute(units []Unit, p vehicle.Params, dt float64) ([][]vehicle.Snapshot, error) {
	out := make([][]vehicle.Snapshot, len(units))
	for i, u := range units {
		next, err := computeUnit(u, p, dt)
		if err != nil {
			return nil, err
		}
		out[i] = next
	}
	return out, nil
}

func (*Sequential) Close() error {
	return nil
}

// computeUnit 依次计算一个执行单元内的所有车道
func computeUnit(u Unit, p vehicle.Params, dt float64) ([]vehicle.Snapshot, error) {
	next := make([]vehicle.Snapshot, 0, u.Len())
	for _, w := range u.Lanes {
		lane, err := runLane(w, p, dt)
		if err != nil {
			return nil, err
		}
		next = append(next, lane...)
	}
	return next, nil
}
