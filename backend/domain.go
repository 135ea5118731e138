package backend

import (
	"fmt"

	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
	"golang.org/x/sync/errgroup"
)

// MaxDomainWorkers 区域分解后端支持的最大执行单元数
const MaxDomainWorkers = 256

// Domain 区域分解后端
// 功能：每个执行单元一个协程，负责固定的车道子集；所有协程结束即为本步的同步屏障
// 说明：单元之间没有共享的可写数据，输出切片按单元下标写入
type Domain struct {
	workers int
}

// NewDomain 创建区域分解后端
// 参数：workers-执行单元数
// 返回：后端实例；workers超出[1, MaxDomainWorkers]时返回ErrUnavailable
func NewDomain(workers int) (*Domain, error) {
	if workers < 1 || workers > MaxDomainWorkers {
		return nil, fmt.Errorf("%w: domain backend supports 1..%d workers, got %d", ErrUnavailable, MaxDomainWorkers, workers)
	}
	return &Domain{workers: workers}, nil
}

func (d *Domain) Name() string {
	return "domain"
}

// Workers 执行单元数
func (d *Domain) Workers() int {
	return d.workers
}

func (d *Domain) Compute(units []Unit, p vehicle.Params, dt float64) ([][]vehicle.Snapshot, error) {
	out := make([][]vehicle.Snapshot, len(units))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, u := range units {
		g.Go(func() error {
			next, err := computeUnit(u, p, dt)
			if err != nil {
				return fmt.Errorf("worker %d: %w", u.Worker, err)
			}
			out[i] = next
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Domain) Close() error {
	return nil
}
