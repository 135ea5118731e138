package container

import (
	"fmt"
	"log"
	"slices"
)

// IHasIDAndV 具有ID和速度属性的接口
// 功能：定义车辆作为链表元素时需要的关键信息
// 说明：ID用于位置相同时的排序，保证链表顺序确定
type IHasIDAndV interface {
	ID() int32  // 获取ID
	V() float64 // 获取速度
}

// ListNode 双向链表中的节点
// 功能：表示有序链表中的一个节点，S为排序键（车辆到停车线的距离）
type ListNode[T IHasIDAndV] struct {
	parent     *List[T]     // 所属链表
	prev, next *ListNode[T] // 前驱和后继节点
	S          float64      // 键值（位置）
	Value      T            // 主要值
}

// String 获取节点的字符串表示
func (n *ListNode[T]) String() string {
	return fmt.Sprintf("Node{Key:%v, Value:%+v}", n.S, n.Value)
}

// Prev 获取节点的前一个节点，第一个节点返回nil
func (n *ListNode[T]) Prev() *ListNode[T] {
	return n.prev
}

// Next 获取节点的下一个节点，最后一个节点返回nil
func (n *ListNode[T]) Next() *ListNode[T] {
	return n.next
}

// Parent 获取节点所在的链表
func (n *ListNode[T]) Parent() *List[T] {
	return n.parent
}

// V 获取节点值的速度
func (n *ListNode[T]) V() float64 {
	return n.Value.V()
}

// Less 节点排序规则：先按S升序，S相同时按ID升序
func (n *ListNode[T]) Less(o *ListNode[T]) bool {
	if n.S != o.S {
		return n.S < o.S
	}
	return n.Value.ID() < o.Value.ID()
}

// InsertBefore 在节点前插入新节点
// 功能：在当前节点之前插入一个新节点
// 参数：add-要插入的新节点
// 算法说明：
// 1. 检查新节点是否已经在其他链表中
// 2. 设置新节点的父链表和前后指针
// 3. 更新当前节点和前驱节点的指针，必要时更新链表头
// 4. 增加链表长度计数
func (n *ListNode[T]) InsertBefore(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.next = n
	add.prev = n.prev
	n.prev = add
	if add.prev != nil {
		add.prev.next = add
	} else {
		add.parent.head = add
	}
	n.parent.length++
}

// InsertAfter 在节点后插入新节点
// 功能：在当前节点之后插入一个新节点，必要时更新链表尾
// 参数：add-要插入的新节点
func (n *ListNode[T]) InsertAfter(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.prev = n
	add.next = n.next
	n.next = add
	if add.next != nil {
		add.next.prev = add
	} else {
		add.parent.tail = add
	}
	n.parent.length++
}

// List 有序双向链表
// 功能：按(S, ID)升序维护车道上的车辆，头部为最靠近停车线的车辆
type List[T IHasIDAndV] struct {
	ID         string       // 链表标识符
	head, tail *ListNode[T] // 头尾节点指针
	length     int          // 链表长度
}

// String 获取链表的字符串表示
func (l *List[T]) String() string {
	return fmt.Sprintf("List{ID:%v}", l.ID)
}

// Keys 获取双向链表中所有节点的键值（从头到尾）
func (l *List[T]) Keys() []float64 {
	keys := make([]float64, l.length)
	for i, node := 0, l.head; node != nil; i, node = i+1, node.next {
		keys[i] = node.S
	}
	return keys
}

// Values 获取双向链表中所有节点的值（从头到尾）
func (l *List[T]) Values() []T {
	values := make([]T, l.length)
	for i, node := 0, l.head; node != nil; i, node = i+1, node.next {
		values[i] = node.Value
	}
	return values
}

// Len 获取双向链表长度
func (l *List[T]) Len() int {
	return l.length
}

// PushFront 向链表头部插入节点
func (l *List[T]) PushFront(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push front node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.head == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
	} else {
		// length++和add.parent在InsertBefore中处理
		l.head.InsertBefore(add)
	}
}

// PushBack 向链表尾部插入节点
func (l *List[T]) PushBack(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push back node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.tail == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
	} else {
		// length++和add.parent在InsertAfter中处理
		l.tail.InsertAfter(add)
	}
}

// Remove 从链表中移除节点
// 功能：从链表中删除指定的节点并清空其指针
// 参数：node-要删除的节点，必须属于当前链表
func (l *List[T]) Remove(node *ListNode[T]) {
	if node.parent != l {
		log.Panic("remove node from wrong list")
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.parent = nil
	l.length--
}

// First 获取链表头部节点，链表为空时返回nil
func (l *List[T]) First() *ListNode[T] {
	return l.head
}

// Last 获取链表尾部节点，链表为空时返回nil
func (l *List[T]) Last() *ListNode[T] {
	return l.tail
}

// PopUnsorted 移除逆序节点
// 功能：移除排在前驱节点之前却不满足排序规则的节点
// 返回：被移除的逆序节点数组
// 说明：与Merge配合使用，在键值更新后恢复链表的有序性
func (l *List[T]) PopUnsorted() (unsorted []*ListNode[T]) {
	for node := l.head; node != nil; {
		next := node.next
		if node.prev != nil && node.Less(node.prev) {
			l.Remove(node)
			unsorted = append(unsorted, node)
		}
		node = next
	}
	return unsorted
}

// Merge 批量有序插入节点
// 算法说明：
// 1. 将待插入节点按排序规则排序
// 2. 与链表做一次归并，每个节点插入到第一个不小于它的节点之前
func (l *List[T]) Merge(adds []*ListNode[T]) {
	slices.SortFunc(adds, func(a, b *ListNode[T]) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	node := l.head
	for _, add := range adds {
		for node != nil && node.Less(add) {
			node = node.next
		}
		if node != nil {
			node.InsertBefore(add)
		} else {
			l.PushBack(add)
		}
	}
}
