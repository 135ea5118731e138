// 执行后端：在一步内把运动模型应用到所有车辆
// 三种后端读取同一份步开始快照、按同一规则计算，结果逐位一致，只在调度方式上不同
package backend

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// ErrUnavailable 执行后端在当前环境或参数下不可用
// 调用方应退回顺序后端并以降级模式运行
var ErrUnavailable = errors.New("backend unavailable")

// Backend 执行后端
type Backend interface {
	// Name 后端名称
	Name() string
	// Compute 计算一步
	// 返回：与units一一对应的新状态，每个单元内按车道、车道内按车辆顺序排列
	// 说明：阻塞直到所有单元完成；任一车辆违反不变量时返回包装了ErrStateInvariant的错误
	Compute(units []Unit, p vehicle.Params, dt float64) ([][]vehicle.Snapshot, error)
	// Close 释放后端资源
	Close() error
}

// New 根据配置创建执行后端
// 参数：c-后端配置
// 返回：后端实例；参数超出后端能力时返回ErrUnavailable
func New(c config.Backend) (Backend, error) {
	switch c.Kind {
	case config.BackendSequential, "":
		return NewSequential(), nil
	case config.BackendDomain:
		return NewDomain(c.WorkerCount)
	case config.BackendDevice:
		return NewDevice(c.BlockSize)
	}
	return nil, fmt.Errorf("%w: unknown backend %q", config.ErrConfiguration, c.Kind)
}
