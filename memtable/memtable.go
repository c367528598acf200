// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package memtable implements the in-memory write buffer a table
// consults before its persisted pages, built directly on
// common.SortedMap. SortedMap already keeps its entries ordered by key
// via binary-searched insertion, which is exactly the buffered,
// ordered-by-primary-key shape the memtable needs, and it lets flush
// walk entries in key order without a separate sort pass.
package memtable

import "github.com/typedstore/typedstore/common"

// DefaultFlushThresholdBytes is the default total payload size, in
// encoded bytes, above which a table should flush its memtable.
const DefaultFlushThresholdBytes = 16 * 1024 * 1024

// tombstone marks a key as deleted while still present in the
// memtable, so delete(k) immediately makes find(k) observe None even
// though the key may still be backed by a persisted page.
type entry struct {
	row       []common.ScalarValue
	tombstone bool
	size      int
}

// MemTable buffers inserts, updates and deletes for a single table
// ahead of the next flush to pages.
type MemTable struct {
	data            *common.SortedMap[common.ID, entry]
	totalBytes      int
	flushThreshold  int
}

// New creates an empty memtable with the given flush threshold in
// bytes.
func New(flushThresholdBytes int) *MemTable {
	if flushThresholdBytes <= 0 {
		flushThresholdBytes = DefaultFlushThresholdBytes
	}
	return &MemTable{
		data:           common.NewSortedMap[common.ID, entry](64, common.IDComparator{}),
		flushThreshold: flushThresholdBytes,
	}
}

// Put inserts or overwrites the row for id, sized at encodedSize bytes
// for flush-threshold accounting.
func (m *MemTable) Put(id common.ID, row []common.ScalarValue, encodedSize int) {
	if old, exists := m.data.Get(id); exists {
		m.totalBytes -= old.size
	}
	m.data.Put(id, entry{row: row, size: encodedSize})
	m.totalBytes += encodedSize
}

// Delete marks id as deleted. Get(id) subsequently reports deleted=true
// so the table does not fall through to consult its pages.
func (m *MemTable) Delete(id common.ID) {
	if old, exists := m.data.Get(id); exists {
		m.totalBytes -= old.size
	}
	m.data.Put(id, entry{tombstone: true})
}

// Get returns the buffered row for id, whether it exists in the
// memtable at all, and whether it is a delete tombstone.
func (m *MemTable) Get(id common.ID) (row []common.ScalarValue, exists bool, deleted bool) {
	e, exists := m.data.Get(id)
	if !exists {
		return nil, false, false
	}
	if e.tombstone {
		return nil, true, true
	}
	return e.row, true, false
}

// ShouldFlush reports whether the accumulated buffered payload size has
// crossed the flush threshold.
func (m *MemTable) ShouldFlush() bool {
	return m.totalBytes >= m.flushThreshold
}

// Size returns the number of buffered entries, including tombstones.
func (m *MemTable) Size() int { return m.data.Size() }

// ForEach visits every buffered entry in ascending primary-key order,
// including tombstones (row is nil, deleted is true for those).
func (m *MemTable) ForEach(callback func(id common.ID, row []common.ScalarValue, deleted bool)) {
	m.data.ForEach(func(id common.ID, e entry) {
		callback(id, e.row, e.tombstone)
	})
}

// Clear empties the memtable, called after a successful flush.
func (m *MemTable) Clear() {
	m.data.Clear()
	m.totalBytes = 0
}

// GetMemoryFootprint reports the memtable's in-memory size.
func (m *MemTable) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(0)
	mf.AddChild("entries", m.data.GetMemoryFootprint())
	return mf
}
