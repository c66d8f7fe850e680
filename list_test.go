package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type intBox struct {
	v int
}

func linkOf(v int) *Link {
	l := &Link{}
	l.Owner = &intBox{v}
	return l
}

func val(l *Link) int {
	return l.Owner.(*intBox).v
}

func ascending(a, b *Link) bool {
	return val(a) < val(b)
}

func TestListEmpty(t *testing.T) {
	l := NewList()
	assert.True(t, l.Empty(), "fresh list should be empty")
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Front())
	assert.Nil(t, l.Back())
	assert.Nil(t, l.PopFront())
}

func TestListPushFrontBack(t *testing.T) {
	l := NewList()
	a, b, c := linkOf(1), linkOf(2), linkOf(3)
	l.PushBack(a)
	l.PushFront(b)
	l.PushBack(c)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, b, l.Front(), "PushFront should place b ahead of a")
	assert.Equal(t, c, l.Back())
}

func TestListInsertOrderedStable(t *testing.T) {
	l := NewList()
	// Two links comparing equal under ascending (same value) must come out
	// in insertion order.
	first := linkOf(5)
	second := linkOf(5)
	l.InsertOrdered(linkOf(1), ascending)
	l.InsertOrdered(first, ascending)
	l.InsertOrdered(linkOf(9), ascending)
	l.InsertOrdered(second, ascending)

	var order []*Link
	l.Each(func(e *Link) { order = append(order, e) })

	assert.Equal(t, []int{1, 5, 5, 9}, []int{val(order[0]), val(order[1]), val(order[2]), val(order[3])})
	assert.Same(t, first, order[1], "equal-valued links must preserve insertion order")
	assert.Same(t, second, order[2])
}

func TestListRemove(t *testing.T) {
	l := NewList()
	a, b, c := linkOf(1), linkOf(2), linkOf(3)
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)
	assert.Equal(t, 2, l.Len())
	assert.False(t, b.InList())

	var order []int
	l.Each(func(e *Link) { order = append(order, val(e)) })
	assert.Equal(t, []int{1, 3}, order)
}

func TestListSort(t *testing.T) {
	l := NewList()
	for _, v := range []int{5, 1, 4, 2, 3} {
		l.PushBack(linkOf(v))
	}
	l.Sort(ascending)

	var order []int
	l.Each(func(e *Link) { order = append(order, val(e)) })
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestListPopFrontOrder(t *testing.T) {
	l := NewList()
	l.InsertOrdered(linkOf(3), ascending)
	l.InsertOrdered(linkOf(1), ascending)
	l.InsertOrdered(linkOf(2), ascending)

	var popped []int
	for !l.Empty() {
		popped = append(popped, val(l.PopFront()))
	}
	assert.Equal(t, []int{1, 2, 3}, popped)
}
