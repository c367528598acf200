// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package manager tracks per-table indexes: the mandatory hash index
// and zero or more adaptively created B-tree indexes, deciding when a
// frequently filtered column earns one. The access-counter-drives-
// background-action shape is grounded on backend/depot/file/file.go's
// pagesCalls/fragmentedCalls instrumentation.
package manager

import (
	"errors"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/index/btree"
	"github.com/typedstore/typedstore/index/hashidx"
)

// SidecarStore locates and opens the persisted B-tree index sidecars
// for one table's columns. filesidecar.Store and ldbsidecar.Store both
// implement it; which one a table uses is a schema.Options choice.
type SidecarStore interface {
	List() ([]string, error)
	Open(column string) (btree.Sidecar, error)
}

// DefaultAccessThreshold is the default number of times a column must
// be used in a query predicate before a B-tree index is adaptively
// created for it. This is a configurable catalog option per the spec's
// design notes, not a hard-coded constant.
const DefaultAccessThreshold = 3

// Manager owns one table's indexes.
type Manager struct {
	PrimaryKey *hashidx.Index

	trees           map[string]*btree.Tree
	accessCounts    map[string]int
	accessThreshold int
	order           int
	log             *common.Logger
	store           SidecarStore
}

// New creates a manager for a table with the given B-tree order and
// adaptive-index access threshold.
func New(order, accessThreshold int, log *common.Logger) *Manager {
	if accessThreshold <= 0 {
		accessThreshold = DefaultAccessThreshold
	}
	if log == nil {
		log = common.Default
	}
	return &Manager{
		PrimaryKey:      hashidx.New(),
		trees:           make(map[string]*btree.Tree),
		accessCounts:    make(map[string]int),
		accessThreshold: accessThreshold,
		order:           order,
		log:             log,
	}
}

// SetSidecarStore binds the manager to a persistence backend for its
// B-tree indexes. Called once, right after New, before LoadPersisted.
func (m *Manager) SetSidecarStore(store SidecarStore) {
	m.store = store
}

// LoadPersisted restores every B-tree index with a sidecar in the
// bound store. A sidecar that fails its integrity check is logged and
// skipped rather than failing the open: the index is simply absent
// until RecordAccess adaptively recreates it from table pages.
func (m *Manager) LoadPersisted() error {
	if m.store == nil {
		return nil
	}
	columns, err := m.store.List()
	if err != nil {
		return err
	}
	for _, column := range columns {
		sidecar, err := m.store.Open(column)
		if err != nil {
			return err
		}
		postings, err := sidecar.Load()
		closeErr := sidecar.Close()
		if err != nil {
			if errors.Is(err, common.ErrIndexCorrupt) {
				m.log.Warn("index sidecar for column %q is corrupt, dropping until rebuilt: %s", column, err)
				continue
			}
			return err
		}
		if closeErr != nil {
			return closeErr
		}
		m.trees[column] = btree.Import(m.order, postings)
	}
	return nil
}

// PersistAll saves every live B-tree index to the bound store, called
// by the owning table on flush and close. It is a no-op when no store
// is bound.
func (m *Manager) PersistAll() error {
	if m.store == nil {
		return nil
	}
	for column, t := range m.trees {
		sidecar, err := m.store.Open(column)
		if err != nil {
			return err
		}
		err = sidecar.Save(t.Export())
		closeErr := sidecar.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

// HasIndex reports whether a B-tree index already exists for column.
func (m *Manager) HasIndex(column string) bool {
	_, exists := m.trees[column]
	return exists
}

// Tree returns the B-tree index for column, if one exists.
func (m *Manager) Tree(column string) (*btree.Tree, bool) {
	t, exists := m.trees[column]
	return t, exists
}

// CreateIndex explicitly installs a B-tree index for column, replaying
// existing rows via populate.
func (m *Manager) CreateIndex(column string, populate func(t *btree.Tree)) *btree.Tree {
	if t, exists := m.trees[column]; exists {
		return t
	}
	t := btree.NewTree(m.order)
	populate(t)
	m.trees[column] = t
	return t
}

// DropIndex removes the B-tree index for column, if any.
func (m *Manager) DropIndex(column string) {
	delete(m.trees, column)
	delete(m.accessCounts, column)
}

// RecordAccess registers one predicate use of column. When the access
// threshold is crossed and no index yet exists, it is created via
// populate and true is returned so the caller can persist a sidecar for
// it.
func (m *Manager) RecordAccess(column string, populate func(t *btree.Tree)) (created bool) {
	if m.HasIndex(column) {
		return false
	}
	m.accessCounts[column]++
	if m.accessCounts[column] < m.accessThreshold {
		return false
	}
	m.log.Info("adaptively creating B-tree index on column %q after %d accesses", column, m.accessCounts[column])
	m.CreateIndex(column, populate)
	return true
}

// IndexedColumns returns the names of columns with a B-tree index.
func (m *Manager) IndexedColumns() []string {
	cols := make([]string, 0, len(m.trees))
	for c := range m.trees {
		cols = append(cols, c)
	}
	return cols
}

// InsertInto updates every index that tracks column for the insertion
// of (value, id), including the named column's B-tree if one exists.
func (m *Manager) InsertInto(column string, value common.ScalarValue, id common.ID) {
	if t, exists := m.trees[column]; exists {
		t.Insert(value, id)
	}
}

// RemoveFrom is the inverse of InsertInto.
func (m *Manager) RemoveFrom(column string, value common.ScalarValue, id common.ID) {
	if t, exists := m.trees[column]; exists {
		t.Remove(value, id)
	}
}

// GetMemoryFootprint reports the manager's in-memory size.
func (m *Manager) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(0)
	mf.AddChild("primaryKey", m.PrimaryKey.GetMemoryFootprint())
	for col, t := range m.trees {
		mf.AddChild("btree:"+col, t.GetMemoryFootprint())
	}
	return mf
}
