package vehicle

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/container"
)

// Store 车辆存储
// 功能：持有全部在途车辆，提供按ID索引与按车道的有序视图
// 说明：每条车道一个有序链表，头部为最靠近停车线的车辆（位置升序，位置相同按ID升序）；
// 只在步与步之间（插入、合并、移除）被修改，并行计算阶段只读
type Store struct {
	lanes  []entity.Lane
	data   map[int32]*Vehicle
	queues []*container.List[*Vehicle]

	exited int64 // 累计移除的车辆数
}

// NewStore 创建车辆存储
// 参数：lanes-规范顺序的车道列表
func NewStore(lanes []entity.Lane) *Store {
	s := &Store{
		lanes:  lanes,
		data:   make(map[int32]*Vehicle),
		queues: make([]*container.List[*Vehicle], len(lanes)),
	}
	for i, l := range lanes {
		s.queues[i] = &container.List[*Vehicle]{ID: fmt.Sprintf("lane %v vehicles", l)}
	}
	return s
}

// Lanes 车道列表
func (s *Store) Lanes() []entity.Lane {
	return s.lanes
}

// Insert 插入新车
// 功能：登记车辆并将其有序插入所在车道
// 参数：vs-新车列表
// 返回：ID重复或车道不存在时返回错误
func (s *Store) Insert(vs ...*Vehicle) error {
	for _, v := range vs {
		if _, ok := s.data[v.ID()]; ok {
			return fmt.Errorf("%w: vehicle ID %d already exists", entity.ErrStateInvariant, v.ID())
		}
		if int(v.Lane()) < 0 || int(v.Lane()) >= len(s.queues) {
			return fmt.Errorf("no lane %d for vehicle %d", v.Lane(), v.ID())
		}
		s.data[v.ID()] = v
		s.queues[v.Lane()].Merge([]*container.ListNode[*Vehicle]{v.node})
	}
	return nil
}

// Get 根据ID获取车辆
func (s *Store) Get(id int32) (*Vehicle, bool) {
	v, ok := s.data[id]
	return v, ok
}

// Len 在途车辆数
func (s *Store) Len() int {
	return len(s.data)
}

// Exited 累计驶离并被移除的车辆数
func (s *Store) Exited() int64 {
	return s.exited
}

// Ordered 获取车道上的车辆，从停车线向上游排序
func (s *Store) Ordered(lane entity.LaneID) []*Vehicle {
	return s.queues[lane].Values()
}

// Snapshots 获取车道上所有车辆状态的副本，顺序与Ordered一致
// 说明：第i辆车的前车即第i-1辆车
func (s *Store) Snapshots(lane entity.LaneID) []Snapshot {
	return lo.Map(s.queues[lane].Values(), func(v *Vehicle, _ int) Snapshot {
		return v.runtime
	})
}

// Occupancy 各车道当前车辆数
func (s *Store) Occupancy() map[entity.LaneID]int {
	occ := make(map[entity.LaneID]int, len(s.lanes))
	for _, l := range s.lanes {
		occ[l.ID] = s.queues[l.ID].Len()
	}
	return occ
}

// QueueLength 车道上处于QUEUED状态的车辆数
func (s *Store) QueueLength(lane entity.LaneID) int {
	return lo.CountBy(s.queues[lane].Values(), func(v *Vehicle) bool {
		return v.runtime.State == entity.StateQueued
	})
}

// Apply 合并一个执行单元的计算结果
// 功能：将新状态写回车辆并更新链表键值
// 参数：next-新状态列表
// 返回：车辆不存在或车道不一致时返回ErrStateInvariant
// 说明：不同执行单元负责互不相交的车道，合并顺序不影响结果
func (s *Store) Apply(next []Snapshot) error {
	for _, n := range next {
		v, ok := s.data[n.ID]
		if !ok {
			return fmt.Errorf("%w: merge of unknown vehicle %d", entity.ErrStateInvariant, n.ID)
		}
		if v.runtime.Lane != n.Lane {
			return fmt.Errorf("%w: vehicle %d merged into lane %d, owned by lane %d", entity.ErrStateInvariant, n.ID, n.Lane, v.runtime.Lane)
		}
		v.runtime = n
		v.node.S = n.Position
	}
	return nil
}

// Resort 恢复所有车道链表的有序性
// 说明：跟车约束保证正常情况下不会超车，这里只处理位置相同时的ID排序
func (s *Store) Resort() {
	for _, q := range s.queues {
		if unsorted := q.PopUnsorted(); len(unsorted) > 0 {
			log.Debugf("%v: %d vehicles resorted", q, len(unsorted))
			q.Merge(unsorted)
		}
	}
}

// RemoveExited 移除所有已驶离的车辆
// 返回：被移除的车辆，按车道顺序、车道内按链表顺序
func (s *Store) RemoveExited() (removed []*Vehicle) {
	for _, q := range s.queues {
		for node := q.First(); node != nil; {
			next := node.Next()
			if node.Value.runtime.State == entity.StateExited {
				q.Remove(node)
				delete(s.data, node.Value.ID())
				removed = append(removed, node.Value)
			}
			node = next
		}
	}
	s.exited += int64(len(removed))
	return
}
