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

// Package intervaltree implements IntervalTreeMap: a red-black tree (CLRS
// insert/delete/rebalance) over (start, end, value) triples, augmented per
// node with minStart and maxEnd over its subtree, to answer interval-overlap
// queries in O(log n + k).
//
// This is the one data structure in this module deliberately not built on a
// third-party library: the balancing algorithm and subtree augmentation are
// the thing this package exists to provide (unlike a B-tree-based interval
// index, which gives no per-subtree min/max hooks to build on), not an
// ambient concern a library could discharge.
package intervaltree

import "github.com/cockroachdb/errors"

type color bool

const (
	red   color = true
	black color = false
)

// node is a red-black tree node holding one (start, end, value) triple, plus
// the minStart/maxEnd augmentation over the subtree rooted at it.
type node[K any, V any] struct {
	start, end         K
	value              V
	color              color
	left, right, parent *node[K, V]
	minStart, maxEnd   K
}

func colorOf[K, V any](n *node[K, V]) color {
	if n == nil {
		return black
	}
	return n.color
}

// Tree is an augmented red-black tree keyed by (start, end, value) triples.
// K is the ordered domain of interval endpoints; V is the payload, ordered
// only to break ties among equal-interval entries.
type Tree[K any, V any] struct {
	root     *node[K, V]
	size     int
	keyCmp   func(a, b K) int
	valueCmp func(a, b V) int
}

// New constructs an empty Tree. keyCmp orders interval endpoints; valueCmp
// breaks ties among entries with identical (start, end).
func New[K any, V any](keyCmp func(a, b K) int, valueCmp func(a, b V) int) *Tree[K, V] {
	return &Tree[K, V]{keyCmp: keyCmp, valueCmp: valueCmp}
}

// Len returns the number of stored triples.
func (t *Tree[K, V]) Len() int { return t.size }

func (t *Tree[K, V]) tripleCompare(as, ae K, av V, bs, be K, bv V) int {
	if c := t.keyCmp(as, bs); c != 0 {
		return c
	}
	if c := t.keyCmp(ae, be); c != 0 {
		return c
	}
	return t.valueCmp(av, bv)
}

func (t *Tree[K, V]) minOf(a, b K) K {
	if t.keyCmp(a, b) <= 0 {
		return a
	}
	return b
}

func (t *Tree[K, V]) maxOf(a, b K) K {
	if t.keyCmp(a, b) >= 0 {
		return a
	}
	return b
}

// overlaps implements the closed-interval overlap test:
// [a,b] and [c,d] overlap iff a<=d && b>=c.
func (t *Tree[K, V]) overlaps(a, b, c, d K) bool {
	return t.keyCmp(a, d) <= 0 && t.keyCmp(b, c) >= 0
}

func (t *Tree[K, V]) updateAugment(n *node[K, V]) {
	n.minStart = n.start
	n.maxEnd = n.end
	if n.left != nil {
		n.minStart = t.minOf(n.minStart, n.left.minStart)
		n.maxEnd = t.maxOf(n.maxEnd, n.left.maxEnd)
	}
	if n.right != nil {
		n.minStart = t.minOf(n.minStart, n.right.minStart)
		n.maxEnd = t.maxOf(n.maxEnd, n.right.maxEnd)
	}
}

// fixAugmentUpward recomputes augmentation from n up to the root. It is
// called after any structural change (insert, delete, or the rotations
// performed while rebalancing either), and is correct regardless of which
// rotations occurred along the path since it only ever reads each node's
// current children.
func (t *Tree[K, V]) fixAugmentUpward(n *node[K, V]) {
	for n != nil {
		t.updateAugment(n)
		n = n.parent
	}
}

func (t *Tree[K, V]) leftRotate(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	t.updateAugment(x)
	t.updateAugment(y)
}

func (t *Tree[K, V]) rightRotate(x *node[K, V]) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	t.updateAugment(x)
	t.updateAugment(y)
}

// Put inserts (start, end, value) if no triple-equal entry already exists,
// reporting whether the insert happened.
func (t *Tree[K, V]) Put(start, end K, value V) bool {
	var parent *node[K, V]
	cur := t.root
	for cur != nil {
		c := t.tripleCompare(start, end, value, cur.start, cur.end, cur.value)
		if c == 0 {
			return false
		}
		parent = cur
		if c < 0 {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	n := &node[K, V]{start: start, end: end, value: value, color: red, parent: parent, minStart: start, maxEnd: end}
	switch {
	case parent == nil:
		t.root = n
	case t.tripleCompare(start, end, value, parent.start, parent.end, parent.value) < 0:
		parent.left = n
	default:
		parent.right = n
	}
	t.size++
	t.insertFixup(n)
	t.fixAugmentUpward(n)
	return true
}

func (t *Tree[K, V]) insertFixup(z *node[K, V]) {
	for colorOf(z.parent) == red {
		gp := z.parent.parent
		if gp == nil {
			break
		}
		if z.parent == gp.left {
			uncle := gp.right
			if colorOf(uncle) == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.leftRotate(z)
			}
			z.parent.color = black
			gp.color = red
			t.rightRotate(gp)
		} else {
			uncle := gp.left
			if colorOf(uncle) == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rightRotate(z)
			}
			z.parent.color = black
			gp.color = red
			t.leftRotate(gp)
		}
	}
	t.root.color = black
}

func (t *Tree[K, V]) transplant(u, v *node[K, V]) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (t *Tree[K, V]) minimum(n *node[K, V]) *node[K, V] {
	for n.left != nil {
		n = n.left
	}
	return n
}

// Remove deletes the triple-equal entry (start, end, value), reporting
// whether it was found.
func (t *Tree[K, V]) Remove(start, end K, value V) bool {
	z := t.findNode(start, end, value)
	if z == nil {
		return false
	}
	t.removeNode(z)
	t.size--
	return true
}

func (t *Tree[K, V]) findNode(start, end K, value V) *node[K, V] {
	cur := t.root
	for cur != nil {
		c := t.tripleCompare(start, end, value, cur.start, cur.end, cur.value)
		switch {
		case c == 0:
			return cur
		case c < 0:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return nil
}

func (t *Tree[K, V]) removeNode(z *node[K, V]) {
	y := z
	yOriginalColor := colorOf(y)
	var x, xParent *node[K, V]

	switch {
	case z.left == nil:
		x = z.right
		xParent = z.parent
		t.transplant(z, z.right)
	case z.right == nil:
		x = z.left
		xParent = z.parent
		t.transplant(z, z.left)
	default:
		// Two children: unlink the in-order successor y from its old
		// position and relink the y node itself into z's position.
		y = t.minimum(z.right)
		yOriginalColor = colorOf(y)
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
		// y now occupies z's old position; z itself is discarded. Clear z's
		// links so nothing can reach the tree through the removed node.
		z.left, z.right, z.parent = nil, nil, nil
	}

	if yOriginalColor == black {
		t.deleteFixup(x, xParent)
	}

	// Recompute augmentation from the lowest touched point up to the root.
	// xParent is always an ancestor (or equal to) the node now occupying
	// z's old slot, so one upward walk covers the whole affected path,
	// including y in the two-children case.
	if xParent != nil {
		t.fixAugmentUpward(xParent)
	} else if t.root != nil {
		t.fixAugmentUpward(t.root)
	}
}

// deleteFixup restores red-black properties after removeNode. x may be nil,
// in which case xParent (x's would-be parent) stands in for it, following
// the common adaptation of CLRS's sentinel-based algorithm to real nils.
func (t *Tree[K, V]) deleteFixup(x, xParent *node[K, V]) {
	for x != t.root && colorOf(x) == black {
		if xParent == nil {
			break
		}
		if x == xParent.left {
			w := xParent.right
			if colorOf(w) == red {
				w.color = black
				xParent.color = red
				t.leftRotate(xParent)
				w = xParent.right
			}
			if w == nil {
				x, xParent = xParent, xParent.parent
				continue
			}
			if colorOf(w.left) == black && colorOf(w.right) == black {
				w.color = red
				x, xParent = xParent, xParent.parent
				continue
			}
			if colorOf(w.right) == black {
				if w.left != nil {
					w.left.color = black
				}
				w.color = red
				t.rightRotate(w)
				w = xParent.right
			}
			w.color = xParent.color
			xParent.color = black
			if w.right != nil {
				w.right.color = black
			}
			t.leftRotate(xParent)
			x = t.root
			xParent = nil
		} else {
			w := xParent.left
			if colorOf(w) == red {
				w.color = black
				xParent.color = red
				t.rightRotate(xParent)
				w = xParent.left
			}
			if w == nil {
				x, xParent = xParent, xParent.parent
				continue
			}
			if colorOf(w.right) == black && colorOf(w.left) == black {
				w.color = red
				x, xParent = xParent, xParent.parent
				continue
			}
			if colorOf(w.left) == black {
				if w.right != nil {
					w.right.color = black
				}
				w.color = red
				t.leftRotate(w)
				w = xParent.left
			}
			w.color = xParent.color
			xParent.color = black
			if w.left != nil {
				w.left.color = black
			}
			t.rightRotate(xParent)
			x = t.root
			xParent = nil
		}
	}
	if x != nil {
		x.color = black
	}
}

func (t *Tree[K, V]) childrenIntersect(n *node[K, V], start, end K) bool {
	return t.keyCmp(n.minStart, end) <= 0 && t.keyCmp(n.maxEnd, start) >= 0
}

// Get returns some entry overlapping [start, end], if any.
func (t *Tree[K, V]) Get(start, end K) (V, bool) {
	n := t.firstOverlap(t.root, start, end)
	if n == nil {
		var zero V
		return zero, false
	}
	return n.value, true
}

// GetFirst returns the overlapping entry with the smallest start (ties
// broken by the triple order), biasing the search left whenever the left
// subtree could still hold a smaller-start overlap.
func (t *Tree[K, V]) GetFirst(start, end K) (s, e K, v V, ok bool) {
	n := t.firstOverlap(t.root, start, end)
	if n == nil {
		return s, e, v, false
	}
	return n.start, n.end, n.value, true
}

// GetLast returns the overlapping entry with the largest start (ties broken
// by the triple order), symmetric to GetFirst.
func (t *Tree[K, V]) GetLast(start, end K) (s, e K, v V, ok bool) {
	n := t.lastOverlap(t.root, start, end)
	if n == nil {
		return s, e, v, false
	}
	return n.start, n.end, n.value, true
}

func (t *Tree[K, V]) firstOverlap(n *node[K, V], start, end K) *node[K, V] {
	if n == nil || !t.childrenIntersect(n, start, end) {
		return nil
	}
	if left := t.firstOverlap(n.left, start, end); left != nil {
		return left
	}
	if t.overlaps(n.start, n.end, start, end) {
		return n
	}
	return t.firstOverlap(n.right, start, end)
}

func (t *Tree[K, V]) lastOverlap(n *node[K, V], start, end K) *node[K, V] {
	if n == nil || !t.childrenIntersect(n, start, end) {
		return nil
	}
	if right := t.lastOverlap(n.right, start, end); right != nil {
		return right
	}
	if t.overlaps(n.start, n.end, start, end) {
		return n
	}
	return t.lastOverlap(n.left, start, end)
}

// GetAll pushes every stored triple overlapping [start, end] into sink, in
// ascending triple order.
func (t *Tree[K, V]) GetAll(start, end K, sink func(s, e K, v V)) {
	t.getAll(t.root, start, end, sink)
}

func (t *Tree[K, V]) getAll(n *node[K, V], start, end K, sink func(s, e K, v V)) {
	if n == nil || !t.childrenIntersect(n, start, end) {
		return
	}
	t.getAll(n.left, start, end, sink)
	if t.overlaps(n.start, n.end, start, end) {
		sink(n.start, n.end, n.value)
	}
	t.getAll(n.right, start, end, sink)
}

func (t *Tree[K, V]) successor(n *node[K, V]) *node[K, V] {
	if n.right != nil {
		return t.minimum(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// Iterator walks successors of the triple-equal anchor entry whose
// (start, end) equals the anchor's, stopping once it reaches an entry with
// a different interval.
type Iterator[K any, V any] struct {
	t       *Tree[K, V]
	cur     *node[K, V]
	anchorS K
	anchorE K
}

// Iterator positions at the triple-equal entry (start, end, value) and
// prepares to iterate successors sharing the same (start, end). ok is false
// if no such entry exists.
func (t *Tree[K, V]) Iterator(start, end K, value V) (*Iterator[K, V], bool) {
	n := t.findNode(start, end, value)
	if n == nil {
		return nil, false
	}
	return &Iterator[K, V]{t: t, cur: n, anchorS: start, anchorE: end}, true
}

// HasNext reports whether the next successor still shares the anchor's
// (start, end).
func (it *Iterator[K, V]) HasNext() bool {
	nxt := it.t.successor(it.cur)
	if nxt == nil {
		return false
	}
	return it.t.keyCmp(nxt.start, it.anchorS) == 0 && it.t.keyCmp(nxt.end, it.anchorE) == 0
}

// Next advances to and returns the next equal-interval entry.
func (it *Iterator[K, V]) Next() (s, e K, v V) {
	if !it.HasNext() {
		panic(errors.AssertionFailedf("intervaltree: Next called with no remaining equal-interval entries"))
	}
	nxt := it.t.successor(it.cur)
	it.cur = nxt
	return nxt.start, nxt.end, nxt.value
}

// Walk invokes visit for every stored triple in ascending order. Intended
// for tests and debugging (e.g. validating augmentation/RB invariants).
func (t *Tree[K, V]) Walk(visit func(s, e K, v V, minStart, maxEnd K, isRed bool)) {
	var rec func(n *node[K, V])
	rec = func(n *node[K, V]) {
		if n == nil {
			return
		}
		rec(n.left)
		visit(n.start, n.end, n.value, n.minStart, n.maxEnd, n.color == red)
		rec(n.right)
	}
	rec(t.root)
}

// BlackHeight returns the number of black nodes on every root-to-nil path,
// or -1 if the tree does not have a uniform black height (a violated
// invariant). Intended for tests.
func (t *Tree[K, V]) BlackHeight() int {
	h, ok := blackHeight(t.root)
	if !ok {
		return -1
	}
	return h
}

func blackHeight[K, V any](n *node[K, V]) (int, bool) {
	if n == nil {
		return 1, true
	}
	if n.color == red && (colorOf(n.left) == red || colorOf(n.right) == red) {
		return 0, false
	}
	lh, ok := blackHeight(n.left)
	if !ok {
		return 0, false
	}
	rh, ok := blackHeight(n.right)
	if !ok {
		return 0, false
	}
	if lh != rh {
		return 0, false
	}
	if n.color == black {
		lh++
	}
	return lh, true
}

// RootIsBlack reports whether the root is black (or the tree is empty), a
// red-black invariant checked by tests.
func (t *Tree[K, V]) RootIsBlack() bool {
	return colorOf(t.root) == black
}

// ValidateAugmentation reports whether every node's minStart/maxEnd equals
// the min/max over its own subtree, recomputed independently of the stored
// values. Intended for tests.
func (t *Tree[K, V]) ValidateAugmentation() bool {
	_, _, ok := t.validateAugmentation(t.root)
	return ok
}

func (t *Tree[K, V]) validateAugmentation(n *node[K, V]) (minStart, maxEnd K, ok bool) {
	if n == nil {
		var zMin, zMax K
		return zMin, zMax, true
	}
	wantMin, wantMax := n.start, n.end
	if n.left != nil {
		lMin, lMax, lok := t.validateAugmentation(n.left)
		if !lok {
			return wantMin, wantMax, false
		}
		wantMin = t.minOf(wantMin, lMin)
		wantMax = t.maxOf(wantMax, lMax)
	}
	if n.right != nil {
		rMin, rMax, rok := t.validateAugmentation(n.right)
		if !rok {
			return wantMin, wantMax, false
		}
		wantMin = t.minOf(wantMin, rMin)
		wantMax = t.maxOf(wantMax, rMax)
	}
	if t.keyCmp(wantMin, n.minStart) != 0 || t.keyCmp(wantMax, n.maxEnd) != 0 {
		return wantMin, wantMax, false
	}
	return wantMin, wantMax, true
}
