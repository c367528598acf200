// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package btree implements the ordered, in-memory, persistent secondary
// index described for typed table columns. Unlike the classic key-only
// B-tree it is adapted from (backend/btree in this module's teacher
// lineage), this tree is a B+tree: routing keys live only in inner
// nodes, actual key -> []id postings live in leaf nodes linked in key
// order, and nodes are addressed by arena index rather than pointer so
// the whole tree can be serialized as a flat node array. The arena
// layout also lets nodes be recycled through a free list, the same
// trick backend/pagepool uses for its page free list.
package btree

import (
	"fmt"
	"unsafe"

	"github.com/typedstore/typedstore/common"
)

const noChild = -1

// DefaultOrder is the default branching factor, per the column index
// default.
const DefaultOrder = 32

type node struct {
	leaf bool

	keys []common.ScalarValue

	// leaf-only
	values []([]common.ID) // parallel to keys, insertion order preserved
	next   int             // arena index of the next leaf in key order, noChild if last

	// inner-only
	children []int // arena indices, len(children) == len(keys)+1

	parent int // arena index of the parent, noChild for the root
}

func newLeaf(order int) *node {
	return &node{leaf: true, keys: make([]common.ScalarValue, 0, order), values: make([][]common.ID, 0, order), next: noChild, parent: noChild}
}

func newInner(order int) *node {
	return &node{leaf: false, keys: make([]common.ScalarValue, 0, order), children: make([]int, 0, order+1), parent: noChild}
}

// Tree is an ordered multimap from a scalar column value to the primary
// keys of the records holding that value, supporting range queries.
type Tree struct {
	arena    []*node
	free     []int
	root     int
	order    int
	size     int // number of distinct (key, id) postings
	comparator common.Comparator[common.ScalarValue]
}

// NewTree creates an empty tree with the given branching factor.
func NewTree(order int) *Tree {
	if order < 3 {
		order = DefaultOrder
	}
	t := &Tree{order: order, comparator: common.ScalarComparator{}}
	t.root = t.alloc(newLeaf(order))
	return t
}

func (t *Tree) alloc(n *node) int {
	if len(t.free) > 0 {
		idx := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.arena[idx] = n
		return idx
	}
	t.arena = append(t.arena, n)
	return len(t.arena) - 1
}

func (t *Tree) release(idx int) {
	t.arena[idx] = nil
	t.free = append(t.free, idx)
}

func (t *Tree) at(idx int) *node { return t.arena[idx] }

func (t *Tree) compare(a, b common.ScalarValue) int { return t.comparator.Compare(&a, &b) }

// Size returns the number of (key, id) postings held by the tree.
func (t *Tree) Size() int { return t.size }

// findSlot returns the index of key within n.keys, or the insertion
// point if absent.
func (t *Tree) findSlot(n *node, key common.ScalarValue) (idx int, exists bool) {
	lo, hi := 0, len(n.keys)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch c := t.compare(n.keys[mid], key); {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return lo, false
}

// descend walks from the root down to the leaf that should contain key.
func (t *Tree) descend(key common.ScalarValue) int {
	cur := t.root
	for !t.at(cur).leaf {
		n := t.at(cur)
		idx, exists := t.findSlot(n, key)
		if exists {
			idx++ // routing keys route to the child strictly greater
		}
		cur = n.children[idx]
	}
	return cur
}

// Insert adds id to the posting list for key, appending it after any
// existing ids for the same key (insertion-order tie-break, per the
// duplicate-key handling invariant).
func (t *Tree) Insert(key common.ScalarValue, id common.ID) {
	leafIdx := t.descend(key)
	leaf := t.at(leafIdx)
	idx, exists := t.findSlot(leaf, key)
	if exists {
		leaf.values[idx] = append(leaf.values[idx], id)
		t.size++
		return
	}
	insertAt(&leaf.keys, idx, key)
	insertValuesAt(&leaf.values, idx, []common.ID{id})
	t.size++

	if len(leaf.keys) > t.order {
		t.splitLeaf(leafIdx)
	}
}

func insertAt[T any](s *[]T, idx int, v T) {
	*s = append(*s, v)
	copy((*s)[idx+1:], (*s)[idx:len(*s)-1])
	(*s)[idx] = v
}

func insertValuesAt(s *[][]common.ID, idx int, v []common.ID) {
	*s = append(*s, nil)
	copy((*s)[idx+1:], (*s)[idx:len(*s)-1])
	(*s)[idx] = v
}

func insertChildAt(s *[]int, idx int, v int) {
	*s = append(*s, 0)
	copy((*s)[idx+1:], (*s)[idx:len(*s)-1])
	(*s)[idx] = v
}

func (t *Tree) splitLeaf(idx int) {
	leaf := t.at(idx)
	mid := len(leaf.keys) / 2

	right := newLeaf(t.order)
	right.keys = append(right.keys, leaf.keys[mid:]...)
	right.values = append(right.values, leaf.values[mid:]...)
	right.next = leaf.next
	right.parent = leaf.parent

	leaf.keys = leaf.keys[:mid]
	leaf.values = leaf.values[:mid]
	rightIdx := t.alloc(right)
	leaf.next = rightIdx

	t.insertIntoParent(idx, rightIdx, right.keys[0])
}

func (t *Tree) splitInner(idx int) {
	n := t.at(idx)
	mid := len(n.keys) / 2
	middleKey := n.keys[mid]

	right := newInner(t.order)
	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)
	right.parent = n.parent

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	rightIdx := t.alloc(right)
	for _, c := range right.children {
		t.at(c).parent = rightIdx
	}

	t.insertIntoParent(idx, rightIdx, middleKey)
}

// insertIntoParent inserts separatorKey and a pointer to rightIdx into
// the parent of leftIdx, creating a new root if leftIdx had none.
func (t *Tree) insertIntoParent(leftIdx, rightIdx int, separatorKey common.ScalarValue) {
	left := t.at(leftIdx)
	parentIdx := left.parent
	if parentIdx == noChild {
		newRoot := newInner(t.order)
		newRoot.keys = append(newRoot.keys, separatorKey)
		newRoot.children = append(newRoot.children, leftIdx, rightIdx)
		t.root = t.alloc(newRoot)
		left.parent = t.root
		t.at(rightIdx).parent = t.root
		return
	}

	parent := t.at(parentIdx)
	idx, _ := t.findSlot(parent, separatorKey)
	insertAt(&parent.keys, idx, separatorKey)
	insertChildAt(&parent.children, idx+1, rightIdx)
	t.at(rightIdx).parent = parentIdx

	if len(parent.keys) > t.order {
		t.splitInner(parentIdx)
	}
}

// Remove deletes the (key, id) posting. It is a no-op if the posting
// does not exist, per the spec's delete-of-nonexistent-entry edge case.
func (t *Tree) Remove(key common.ScalarValue, id common.ID) {
	leafIdx := t.descend(key)
	leaf := t.at(leafIdx)
	idx, exists := t.findSlot(leaf, key)
	if !exists {
		return
	}
	ids := leaf.values[idx]
	pos := -1
	for i, existing := range ids {
		if existing == id {
			pos = i
			break
		}
	}
	if pos == -1 {
		return
	}
	leaf.values[idx] = append(ids[:pos], ids[pos+1:]...)
	t.size--

	if len(leaf.values[idx]) == 0 {
		removeAt(&leaf.keys, idx)
		removeValuesAt(&leaf.values, idx)
		if len(leaf.keys) == 0 && leafIdx != t.root {
			t.pruneEmptyLeaf(leafIdx)
		}
	}
}

func removeAt[T any](s *[]T, idx int) {
	*s = append((*s)[:idx], (*s)[idx+1:]...)
}

func removeValuesAt(s *[][]common.ID, idx int) {
	*s = append((*s)[:idx], (*s)[idx+1:]...)
}

// pruneEmptyLeaf unlinks an emptied, non-root leaf from its parent and
// recursively removes any inner node left with no keys. This keeps the
// tree free of dangling nodes without implementing full borrow/merge
// rebalancing on delete; the tree remains correct for Find/FindRange,
// only the strict minimum-occupancy invariant is relaxed after deletes.
func (t *Tree) pruneEmptyLeaf(leafIdx int) {
	leaf := t.at(leafIdx)
	parentIdx := leaf.parent
	// relink the leaf list
	for i := range t.arena {
		if t.arena[i] != nil && t.arena[i].leaf && t.arena[i].next == leafIdx {
			t.arena[i].next = leaf.next
			break
		}
	}
	t.release(leafIdx)

	parent := t.at(parentIdx)
	childPos := -1
	for i, c := range parent.children {
		if c == leafIdx {
			childPos = i
			break
		}
	}
	if childPos == -1 {
		return
	}
	removeAt(&parent.children, childPos)
	keyPos := childPos
	if keyPos == len(parent.keys) {
		keyPos--
	}
	if keyPos >= 0 && keyPos < len(parent.keys) {
		removeAt(&parent.keys, keyPos)
	}

	if len(parent.children) == 1 && parentIdx == t.root {
		t.root = parent.children[0]
		t.at(t.root).parent = noChild
		t.release(parentIdx)
		return
	}
	if len(parent.keys) == 0 && parentIdx != t.root {
		t.pruneEmptyInner(parentIdx)
	}
}

func (t *Tree) pruneEmptyInner(idx int) {
	n := t.at(idx)
	parentIdx := n.parent
	onlyChild := n.children[0]
	t.at(onlyChild).parent = parentIdx
	t.release(idx)

	parent := t.at(parentIdx)
	childPos := -1
	for i, c := range parent.children {
		if c == idx {
			childPos = i
			break
		}
	}
	if childPos == -1 {
		return
	}
	parent.children[childPos] = onlyChild
}

// Find returns the posting list for an exact key match, in insertion
// order, or an empty slice if the key is absent.
func (t *Tree) Find(key common.ScalarValue) []common.ID {
	leaf := t.at(t.descend(key))
	idx, exists := t.findSlot(leaf, key)
	if !exists {
		return nil
	}
	out := make([]common.ID, len(leaf.values[idx]))
	copy(out, leaf.values[idx])
	return out
}

func (t *Tree) leftmostLeaf() int {
	cur := t.root
	for !t.at(cur).leaf {
		cur = t.at(cur).children[0]
	}
	return cur
}

// FindRange returns all ids for keys k with lo <= k <= hi, in ascending
// key order, each key's ids in insertion order.
func (t *Tree) FindRange(lo, hi common.ScalarValue) []common.ID {
	var out []common.ID
	leafIdx := t.descend(lo)
	for leafIdx != noChild {
		leaf := t.at(leafIdx)
		for i, k := range leaf.keys {
			if t.compare(k, lo) < 0 {
				continue
			}
			if t.compare(k, hi) > 0 {
				return out
			}
			out = append(out, leaf.values[i]...)
		}
		leafIdx = leaf.next
	}
	return out
}

// FindGreaterThan returns all ids for keys strictly greater than key.
func (t *Tree) FindGreaterThan(key common.ScalarValue) []common.ID {
	var out []common.ID
	leafIdx := t.descend(key)
	for leafIdx != noChild {
		leaf := t.at(leafIdx)
		for i, k := range leaf.keys {
			if t.compare(k, key) > 0 {
				out = append(out, leaf.values[i]...)
			}
		}
		leafIdx = leaf.next
	}
	return out
}

// FindLessThan returns all ids for keys strictly less than key, in
// ascending key order.
func (t *Tree) FindLessThan(key common.ScalarValue) []common.ID {
	var out []common.ID
	leafIdx := t.leftmostLeaf()
	for leafIdx != noChild {
		leaf := t.at(leafIdx)
		for i, k := range leaf.keys {
			if t.compare(k, key) >= 0 {
				return out
			}
			out = append(out, leaf.values[i]...)
		}
		leafIdx = leaf.next
	}
	return out
}

// GetAllSorted returns every id in ascending key order.
func (t *Tree) GetAllSorted() []common.ID {
	var out []common.ID
	leafIdx := t.leftmostLeaf()
	for leafIdx != noChild {
		leaf := t.at(leafIdx)
		for _, ids := range leaf.values {
			out = append(out, ids...)
		}
		leafIdx = leaf.next
	}
	return out
}

// ForEach visits every (key, id) posting in ascending key order.
func (t *Tree) ForEach(callback func(key common.ScalarValue, id common.ID)) {
	leafIdx := t.leftmostLeaf()
	for leafIdx != noChild {
		leaf := t.at(leafIdx)
		for i, k := range leaf.keys {
			for _, id := range leaf.values[i] {
				callback(k, id)
			}
		}
		leafIdx = leaf.next
	}
}

func (t *Tree) String() string {
	return fmt.Sprintf("btree{order=%d, size=%d, nodes=%d}", t.order, t.size, len(t.arena)-len(t.free))
}

// GetMemoryFootprint reports the tree's in-memory size.
func (t *Tree) GetMemoryFootprint() *common.MemoryFootprint {
	self := unsafe.Sizeof(*t)
	var nodesSize uintptr
	for _, n := range t.arena {
		if n == nil {
			continue
		}
		nodesSize += unsafe.Sizeof(*n)
		nodesSize += uintptr(len(n.keys)) * unsafe.Sizeof(common.ScalarValue{})
		for _, ids := range n.values {
			nodesSize += uintptr(len(ids)) * unsafe.Sizeof(common.ID(""))
		}
		nodesSize += uintptr(len(n.children)) * unsafe.Sizeof(int(0))
	}
	return common.NewMemoryFootprint(self + nodesSize)
}
