// Copyright 2024 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package ringdeque implements a sortable power-of-two ring-buffer deque:
// O(1) push/peek/poll at both ends, a cursor iterator supporting in-place
// removal, and an explicit in-place sort that first linearizes a wrapped
// ring.
//
// Peek and poll on an empty deque return (zero, false) rather than a
// sentinel "none" value, following normal Go convention.
package ringdeque

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

// CompareFunc orders two elements for Sort, returning <0, 0, or >0.
type CompareFunc[T any] func(a, b T) int

// maxCapacity bounds ring growth; capacity never exceeds 2^31.
const maxCapacity = 1 << 31

const defaultInitialCapacity = 8

// RingDeque is a power-of-two-capacity ring buffer. The zero value is not
// usable; construct with New or NewWithCapacity.
type RingDeque[T any] struct {
	data []T
	head int
	tail int
	mask int
	cmp  CompareFunc[T]
}

// New returns an empty RingDeque with a small default capacity.
func New[T any](cmp CompareFunc[T]) *RingDeque[T] {
	return NewWithCapacity[T](defaultInitialCapacity, cmp)
}

// NewWithCapacity returns an empty RingDeque sized to hold at least
// capacityHint elements before its first grow.
func NewWithCapacity[T any](capacityHint int, cmp CompareFunc[T]) *RingDeque[T] {
	c := nextPowerOfTwo(capacityHint + 1)
	return &RingDeque[T]{
		data: make([]T, c),
		mask: c - 1,
		cmp:  cmp,
	}
}

func nextPowerOfTwo(n int) int {
	if n < 2 {
		n = 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns (tail-head)&mask, the number of live elements.
func (d *RingDeque[T]) Len() int {
	return (d.tail - d.head) & d.mask
}

// IsEmpty reports head == tail.
func (d *RingDeque[T]) IsEmpty() bool {
	return d.head == d.tail
}

// at returns the element at logical position pos (0-based from head).
func (d *RingDeque[T]) at(pos int) T {
	return d.data[(d.head+pos)&d.mask]
}

// At returns the element at logical position pos (0-based from head). It
// panics if pos is out of [0, Len()).
func (d *RingDeque[T]) At(pos int) T {
	if pos < 0 || pos >= d.Len() {
		panic(errors.AssertionFailedf("ringdeque: At(%d) out of range, len=%d", pos, d.Len()))
	}
	return d.at(pos)
}

func (d *RingDeque[T]) setAt(pos int, v T) {
	d.data[(d.head+pos)&d.mask] = v
}

// PushLast appends e at the tail, amortized O(1); doubles capacity whenever
// the push would otherwise make tail collide with head.
func (d *RingDeque[T]) PushLast(e T) {
	d.data[d.tail] = e
	d.tail = (d.tail + 1) & d.mask
	if d.tail == d.head {
		d.grow()
	}
}

func (d *RingDeque[T]) grow() {
	oldCap := len(d.data)
	newCap := oldCap * 2
	if newCap > maxCapacity {
		panic(errors.AssertionFailedf("ringdeque: capacity would exceed %d", maxCapacity))
	}
	n := oldCap
	newData := make([]T, newCap)
	copy(newData, d.data[d.head:])
	copy(newData[oldCap-d.head:], d.data[:d.head])
	d.data = newData
	d.head = 0
	d.tail = n
	d.mask = newCap - 1
}

// PollFirst removes and returns the head element.
func (d *RingDeque[T]) PollFirst() (e T, ok bool) {
	if d.IsEmpty() {
		return e, false
	}
	e = d.data[d.head]
	var zero T
	d.data[d.head] = zero
	d.head = (d.head + 1) & d.mask
	return e, true
}

// PeekFirst returns the head element without removing it.
func (d *RingDeque[T]) PeekFirst() (e T, ok bool) {
	if d.IsEmpty() {
		return e, false
	}
	return d.data[d.head], true
}

// PollLast removes and returns the tail element.
func (d *RingDeque[T]) PollLast() (e T, ok bool) {
	if d.IsEmpty() {
		return e, false
	}
	d.tail = (d.tail - 1) & d.mask
	e = d.data[d.tail]
	var zero T
	d.data[d.tail] = zero
	return e, true
}

// PeekLast returns the tail element without removing it.
func (d *RingDeque[T]) PeekLast() (e T, ok bool) {
	if d.IsEmpty() {
		return e, false
	}
	return d.data[(d.tail-1)&d.mask], true
}

// delete removes the element at logical position pos, choosing whichever of
// the prefix or suffix is shorter to shift.
func (d *RingDeque[T]) delete(pos int) {
	n := d.Len()
	before := pos
	after := n - pos - 1
	physIdx := (d.head + pos) & d.mask
	var zero T
	if before <= after {
		for k := physIdx; k != d.head; {
			prev := (k - 1) & d.mask
			d.data[k] = d.data[prev]
			k = prev
		}
		d.data[d.head] = zero
		d.head = (d.head + 1) & d.mask
	} else {
		d.tail = (d.tail - 1) & d.mask
		for k := physIdx; k != d.tail; {
			next := (k + 1) & d.mask
			d.data[k] = d.data[next]
			k = next
		}
		d.data[d.tail] = zero
	}
}

// Sort linearizes a wrapped ring into [0, size) and then sorts the live
// range in place by cmp. Sort is idempotent: calling it again on an
// already-sorted deque is a no-op.
func (d *RingDeque[T]) Sort() {
	n := d.Len()
	if n <= 1 {
		return
	}
	if d.head+n > len(d.data) {
		d.compact()
	}
	s := d.data[d.head : d.head+n]
	slices.SortFunc(s, func(a, b T) bool { return d.cmp(a, b) < 0 })
}

// compact moves the live range to [0, size) without reallocating beyond a
// single scratch buffer, and resets head/tail accordingly.
func (d *RingDeque[T]) compact() {
	n := d.Len()
	tmp := make([]T, n)
	for i := 0; i < n; i++ {
		tmp[i] = d.at(i)
	}
	var zero T
	for i := range d.data {
		d.data[i] = zero
	}
	copy(d.data, tmp)
	d.head = 0
	d.tail = n
}

// Iterator is a forward cursor over a RingDeque, starting positioned before
// the first element (or the requested starting element). Removing the
// current element via Remove shifts the cursor backward by one logical
// slot so that a subsequent Next visits what was the following element.
type Iterator[T any] struct {
	d     *RingDeque[T]
	pos   int  // logical position of the last-produced element
	moved bool // whether Next has been called
}

// Iterator returns a cursor positioned before the first element.
func (d *RingDeque[T]) Iterator() *Iterator[T] {
	return &Iterator[T]{d: d, pos: -1}
}

// IteratorFrom returns a cursor such that the next call to Next returns the
// element currently at logical position from.
func (d *RingDeque[T]) IteratorFrom(from int) *Iterator[T] {
	return &Iterator[T]{d: d, pos: from - 1}
}

// IteratorFromMatch returns a cursor positioned just before the first
// element (scanning from the head) for which match returns true, and
// reports whether such an element was found.
func (d *RingDeque[T]) IteratorFromMatch(match func(T) bool) (*Iterator[T], bool) {
	n := d.Len()
	for i := 0; i < n; i++ {
		if match(d.at(i)) {
			return d.IteratorFrom(i), true
		}
	}
	return nil, false
}

// HasNext reports whether Next would return an element.
func (it *Iterator[T]) HasNext() bool {
	return it.pos+1 < it.d.Len()
}

// Next advances the cursor and returns the next element.
func (it *Iterator[T]) Next() T {
	it.pos++
	it.moved = true
	return it.d.at(it.pos)
}

// Pos returns the logical position (0-based from head) of the last element
// produced by Next, or -1 if Next has not yet been called.
func (it *Iterator[T]) Pos() int {
	if !it.moved {
		return -1
	}
	return it.pos
}

// Current returns the last element produced by Next, or (zero, false) if
// Next has not yet been called.
func (it *Iterator[T]) Current() (e T, ok bool) {
	if !it.moved || it.pos < 0 {
		return e, false
	}
	return it.d.at(it.pos), true
}

// Set overwrites the current element in place.
func (it *Iterator[T]) Set(v T) {
	if !it.moved || it.pos < 0 {
		panic(errors.AssertionFailedf("ringdeque: Set called before Next"))
	}
	it.d.setAt(it.pos, v)
}

// Remove deletes the current element from the deque and retracts the
// cursor by one slot so that a following Next reproduces the element that
// took its place.
func (it *Iterator[T]) Remove() {
	if !it.moved || it.pos < 0 {
		panic(errors.AssertionFailedf("ringdeque: Remove called before Next"))
	}
	it.d.delete(it.pos)
	it.pos--
}

// GetPrevious scans from the tail for the first element (in tail-to-head
// order) whose projection under proj equals key, and returns the element
// immediately preceding it (in ring order). ok is false if no element
// matches, or if the match is already the first element.
func GetPrevious[T any, K comparable](d *RingDeque[T], proj func(T) K, key K) (e T, ok bool) {
	n := d.Len()
	for i := n - 1; i >= 0; i-- {
		if proj(d.at(i)) == key {
			if i == 0 {
				return e, false
			}
			return d.at(i - 1), true
		}
	}
	return e, false
}
