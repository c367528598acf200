// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package hashidx implements the mandatory primary-key index every
// table has exactly one of, grounded on backend/index/memory.Memory's
// minimal wrapped-map shape.
package hashidx

import (
	"unsafe"

	"github.com/typedstore/typedstore/common"
)

// Location identifies where a record currently lives among a table's
// persisted pages: the page number and the record's position within
// that page's decoded record group.
type Location struct {
	PageNo int
	Slot   int
}

// Index is the primary-key -> record-location map. It is rebuilt from
// scratch by replaying persisted pages whenever a table is opened.
type Index struct {
	data map[common.ID]Location
}

// New creates an empty hash index.
func New() *Index {
	return &Index{data: make(map[common.ID]Location)}
}

// Insert associates id with loc, overwriting any previous location.
func (idx *Index) Insert(id common.ID, loc Location) {
	idx.data[id] = loc
}

// Remove deletes id from the index. It is a no-op if id is absent.
func (idx *Index) Remove(id common.ID) {
	delete(idx.data, id)
}

// Find returns the location for id and whether it was present.
func (idx *Index) Find(id common.ID) (Location, bool) {
	loc, exists := idx.data[id]
	return loc, exists
}

// Len returns the number of indexed ids.
func (idx *Index) Len() int { return len(idx.data) }

// Clear empties the index, used before a full rebuild.
func (idx *Index) Clear() {
	idx.data = make(map[common.ID]Location)
}

// ForEach visits every (id, location) pair. Iteration order is
// unspecified, matching Go map semantics.
func (idx *Index) ForEach(callback func(common.ID, Location)) {
	for id, loc := range idx.data {
		callback(id, loc)
	}
}

// GetMemoryFootprint reports the index's in-memory size.
func (idx *Index) GetMemoryFootprint() *common.MemoryFootprint {
	var id common.ID
	var loc Location
	entrySize := unsafe.Sizeof(id) + unsafe.Sizeof(loc)
	return common.NewMemoryFootprint(uintptr(len(idx.data)) * entrySize)
}
