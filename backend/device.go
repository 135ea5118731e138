package backend

import (
	"fmt"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
)

// MaxBlockSize 设备后端单个批次的最大车辆数
const MaxBlockSize = 1024

// kernelRef 设备后端的一个计算项：第unit个单元第lane条车道的第index辆车
type kernelRef struct {
	unit, lane, index int
}

// Device 设备风格后端
// 功能：每辆车一个计算项，按块大小分批并发执行，每步整体阻塞等待
// 算法说明：
// 1. 将所有单元的车辆展平为计算项，并记录每个单元输出的起始偏移
// 2. 按块大小切分，每块一个协程，计算项只写入自己的输出槽位
// 3. 全部完成后按偏移把结果分散回各单元
type Device struct {
	blockSize int
}

// NewDevice 创建设备风格后端
// 参数：blockSize-每批次的车辆数
// 返回：后端实例；blockSize超出[1, MaxBlockSize]时返回ErrUnavailable
func NewDevice(blockSize int) (*Device, error) {
	if blockSize < 1 || blockSize > MaxBlockSize {
		return nil, fmt.Errorf("%w: device block size must be in 1..%d, got %d", ErrUnavailable, MaxBlockSize, blockSize)
	}
	return &Device{blockSize: blockSize}, nil
}

func (d *Device) Name() string {
	return "device"
}

func (d *Device) Compute(units []Unit, p vehicle.Params, dt float64) ([][]vehicle.Snapshot, error) {
	var refs []kernelRef
	offsets := make([]int, len(units)+1)
	for ui, u := range units {
		offsets[ui] = len(refs)
		for li, w := range u.Lanes {
			for i := range w.Agents {
				refs = append(refs, kernelRef{unit: ui, lane: li, index: i})
			}
		}
	}
	offsets[len(units)] = len(refs)

	next := make([]vehicle.Snapshot, len(refs))
	errs := make([]error, len(refs))
	blocks := lo.Chunk(lo.Range(len(refs)), d.blockSize)
	parallel.GoFor(blocks, func(block []int) {
		for _, k := range block {
			r := refs[k]
			errs[k] = advanceOne(units[r.unit].Lanes[r.lane], r.index, p, dt, &next[k])
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([][]vehicle.Snapshot, len(units))
	for ui := range units {
		out[ui] = next[offsets[ui]:offsets[ui+1]]
	}
	return out, nil
}

func (d *Device) Close() error {
	return nil
}
