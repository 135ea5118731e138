package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/container"
)

type testData struct {
	id int32
}

func (t testData) ID() int32 {
	return t.id
}

func (t testData) V() float64 {
	return 0
}

func newNode(s float64, id int32) *container.ListNode[testData] {
	return &container.ListNode[testData]{S: s, Value: testData{id: id}}
}

func TestListInit(t *testing.T) {
	l := &container.List[testData]{}
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
	assert.Equal(t, 0, l.Len())
}

func TestListOperation(t *testing.T) {
	l := &container.List[testData]{}

	// test: insert

	// ^, 1, ^
	n1 := newNode(1, 1)
	l.PushBack(n1)
	// ^, 2, 1, ^
	n2 := newNode(2, 2)
	l.PushFront(n2)
	// ^, 3, 2, 1, ^
	n3 := newNode(3, 3)
	n2.InsertBefore(n3)
	// ^, 3, 2, 1, 4, ^
	n4 := newNode(4, 4)
	n1.InsertAfter(n4)
	assert.Equal(t, 4, l.Len())

	// test: first last next prev

	n := l.First()
	assert.Equal(t, n3, n)
	n = n.Next()
	assert.Equal(t, n2, n)
	n = n.Next()
	assert.Equal(t, n1, n)
	assert.Equal(t, n, n.Next().Prev())
	assert.Equal(t, n, n.Prev().Next())
	n = n.Next()
	assert.Equal(t, n4, n)

	assert.Equal(t, n4, l.Last())

	// test: pop merge

	// before: head, 0, 3, 2, 1, 4, tail
	n0 := newNode(0, 0)
	l.PushFront(n0)
	unsorted := l.PopUnsorted()
	assert.ElementsMatch(t, []*container.ListNode[testData]{n2, n1}, unsorted)
	assert.Equal(t, 5-2, l.Len())

	// head, 0, 1, 2, 3, 4, tail
	l.Merge(unsorted)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, l.Keys())
	assert.Equal(t, n0, l.First())
	assert.Equal(t, n4, l.Last())

	// test: remove

	// head, 0, 1, 2, 3, tail
	l.Remove(n4)
	assert.Equal(t, n3, l.Last())
	assert.Equal(t, 5-1, l.Len())
	assert.Nil(t, n4.Parent())
}

func TestListTieBreakByID(t *testing.T) {
	l := &container.List[testData]{}
	a := newNode(10, 7)
	b := newNode(10, 3)
	c := newNode(5, 9)
	l.Merge([]*container.ListNode[testData]{a, b, c})

	assert.Equal(t, []testData{{id: 9}, {id: 3}, {id: 7}}, l.Values())

	// same key, lower id must move ahead after the key update
	d := newNode(10, 1)
	l.PushBack(d)
	unsorted := l.PopUnsorted()
	assert.Equal(t, []*container.ListNode[testData]{d}, unsorted)
	l.Merge(unsorted)
	assert.Equal(t, []testData{{id: 9}, {id: 1}, {id: 3}, {id: 7}}, l.Values())
}
