// This file's sentinel doubly-linked-list shape is adapted from the `dll`
// type in vanadium-go.lib/nsync/waiter.go:
//
// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Link is an intrusive doubly-linked list node. Every queue in this package
// (the ready queue, every semaphore's waiters, every thread's donors, the
// sleep list) is a *List of these, embedded in the owning record rather than
// boxed around a value. Owner recovers the embedding record; Go has no safe
// container-of, so we keep an explicit back-reference instead of computing
// one from the link's address.
type Link struct {
	next, prev *Link
	list       *List
	Owner      any
}

// InList reports whether the link currently belongs to some list.
func (l *Link) InList() bool {
	return l.list != nil
}

// Less compares two links belonging to the same list; the list is always
// traversed/ordered through one of these, supplied at the call site.
type Less func(a, b *Link) bool

// List is a sentinel-based circular doubly-linked list. The zero value,
// after a call to Init, is an empty list.
type List struct {
	root Link // root.next == front, root.prev == back; root.list == &root's own list when non-nil is never set on root
	n    int
}

// NewList returns an initialized, empty List.
func NewList() *List {
	l := &List{}
	l.root.next = &l.root
	l.root.prev = &l.root
	return l
}

// Init (re-)initializes an empty List value in place; useful for lists
// embedded in a larger struct that can't call NewList in a constructor.
func (l *List) Init() *List {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.n = 0
	return l
}

// Empty reports whether the list has no elements.
func (l *List) Empty() bool {
	return l.n == 0
}

// Len returns the number of elements in the list.
func (l *List) Len() int {
	return l.n
}

func (l *List) insertBetween(e, at, atNext *Link) {
	e.prev = at
	e.next = atNext
	at.next = e
	atNext.prev = e
	e.list = l
	l.n++
}

// PushBack appends e to the back (tail) of the list.
func (l *List) PushBack(e *Link) {
	l.insertBetween(e, l.root.prev, &l.root)
}

// PushFront prepends e to the front (head) of the list.
func (l *List) PushFront(e *Link) {
	l.insertBetween(e, &l.root, l.root.next)
}

// Front returns the first element, or nil if the list is empty.
func (l *List) Front() *Link {
	if l.Empty() {
		return nil
	}
	return l.root.next
}

// Back returns the last element, or nil if the list is empty.
func (l *List) Back() *Link {
	if l.Empty() {
		return nil
	}
	return l.root.prev
}

// PopFront removes and returns the first element, or nil if the list is
// empty.
func (l *List) PopFront() *Link {
	e := l.Front()
	if e != nil {
		l.Remove(e)
	}
	return e
}

// Remove detaches e from the list. Requires that e is currently in l.
func (l *List) Remove(e *Link) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next, e.prev, e.list = nil, nil, nil
	l.n--
}

// InsertOrdered inserts e into the list at the position determined by less,
// keeping the list sorted: e is placed just before the first existing
// element it precedes, or at the back if it precedes none. Insertion among
// elements that compare equal is stable (FIFO), since we scan front-to-back
// and stop at the first strictly-greater element.
func (l *List) InsertOrdered(e *Link, less Less) {
	for cur := l.root.next; cur != &l.root; cur = cur.next {
		if less(e, cur) {
			l.insertBetween(e, cur.prev, cur)
			return
		}
	}
	l.PushBack(e)
}

// Sort re-sorts the list in place using less, via stable insertion sort.
// Lists here are always short (bounded by the number of ready or waiting
// threads) and already close to sorted, since only one or two priorities
// shift between sorts, so insertion sort's low overhead beats a generic
// sort for this shape of workload.
func (l *List) Sort(less Less) {
	if l.n < 2 {
		return
	}
	var items []*Link
	for cur := l.root.next; cur != &l.root; cur = cur.next {
		items = append(items, cur)
	}
	for _, e := range items {
		l.Remove(e)
	}
	for _, e := range items {
		l.InsertOrdered(e, less)
	}
}

// Each calls fn for every element, front to back. fn must not mutate the
// list.
func (l *List) Each(fn func(*Link)) {
	for cur := l.root.next; cur != &l.root; cur = cur.next {
		fn(cur)
	}
}
