// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package table implements the per-type CRUD surface composing the
// memtable, the shared page cache/file manager and a table's indexes.
// Its flush sequence - walk the memtable in key order, encode, write
// pages, clear, persist sidecars - mirrors the
// array.Flush -> pagepool.Flush -> pageStore.Flush chain in
// backend/array/pagedarray/file.go.
package table

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/typedstore/typedstore/codec"
	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/common/interrupt"
	"github.com/typedstore/typedstore/index/btree"
	"github.com/typedstore/typedstore/index/hashidx"
	"github.com/typedstore/typedstore/index/manager"
	"github.com/typedstore/typedstore/memtable"
	tpage "github.com/typedstore/typedstore/storage/page"
	"github.com/typedstore/typedstore/storage/pagecache"
	"github.com/typedstore/typedstore/storage/pagefile"
)

// Row is a schema-indexed positional record: Row[i] holds the value of
// Columns[i]. This is the hot-path representation; common.ScalarValue
// maps are used only at the executor/IDL boundary.
type Row = []common.ScalarValue

// Table is one open, schema-typed table.
type Table struct {
	Name    string
	Columns []common.Column

	mu sync.RWMutex

	mem     *memtable.MemTable
	indexes *manager.Manager
	files   *pagefile.Manager
	cache   *pagecache.Cache
	log     *common.Logger

	nextPage int // next unused data page number (1-based, 0 is metadata)
}

// Options configures a newly opened table.
type Options struct {
	FlushThresholdBytes int
	BTreeOrder          int
	AccessThreshold     int
	Logger              *common.Logger

	// IndexSidecars, when set, persists and restores this table's
	// adaptively created B-tree indexes. A nil store leaves indexes
	// in-memory only, rebuilt by RecordAccess as columns are accessed.
	IndexSidecars manager.SidecarStore
}

// Open opens or creates a table's backing file under dir and rebuilds
// its primary-key hash index by replaying persisted pages, per the
// spec's "rebuilt from persisted pages on table open" contract.
func Open(dir, name string, columns []common.Column, cache *pagecache.Cache, opts Options) (*Table, error) {
	files, err := pagefile.Open(dir, name)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = common.Default
	}
	if opts.BTreeOrder == 0 {
		opts.BTreeOrder = btree.DefaultOrder
	}

	t := &Table{
		Name:     name,
		Columns:  columns,
		mem:      memtable.New(opts.FlushThresholdBytes),
		indexes:  manager.New(opts.BTreeOrder, opts.AccessThreshold, opts.Logger),
		files:    files,
		cache:    cache,
		log:      opts.Logger,
		nextPage: 1,
	}

	if err := t.ensureMetadata(); err != nil {
		return nil, err
	}

	if opts.IndexSidecars != nil {
		t.indexes.SetSidecarStore(opts.IndexSidecars)
		if err := t.indexes.LoadPersisted(); err != nil {
			return nil, fmt.Errorf("loading persisted indexes for table %q: %w", name, err)
		}
	}

	if err := t.rebuildHashIndex(); err != nil {
		return nil, err
	}
	return t, nil
}

// ensureMetadata writes this table's column definitions to page 0 the
// first time it is opened, or checks a prior open's persisted columns
// still match on every subsequent open.
func (t *Table) ensureMetadata() error {
	raw, err := t.files.ReadMetadata()
	if err != nil {
		return err
	}
	if raw == nil {
		payload, err := codec.EncodeMetadata(codec.WireMetadata{TableName: t.Name, Columns: columnsToWire(t.Columns)})
		if err != nil {
			return err
		}
		return t.files.WriteMetadata(payload)
	}

	meta, err := codec.DecodeMetadata(raw)
	if err != nil {
		return fmt.Errorf("%w: table %q metadata: %s", common.ErrIoError, t.Name, err)
	}
	if len(meta.Columns) != len(t.Columns) {
		return fmt.Errorf("%w: table %q opened with %d columns, persisted metadata has %d", common.ErrSchemaMismatch, t.Name, len(t.Columns), len(meta.Columns))
	}
	for i, col := range t.Columns {
		persisted := meta.Columns[i]
		if persisted.Name != col.Name || common.ScalarKind(persisted.Kind) != col.Kind {
			return fmt.Errorf("%w: table %q column %d: bound as %s/%s, persisted as %s/%s",
				common.ErrSchemaMismatch, t.Name, i, col.Name, col.Kind, persisted.Name, common.ScalarKind(persisted.Kind))
		}
	}
	return nil
}

func columnsToWire(columns []common.Column) []codec.WireColumn {
	wire := make([]codec.WireColumn, len(columns))
	for i, c := range columns {
		wire[i] = codec.WireColumn{
			Name:         c.Name,
			Kind:         uint8(c.Kind),
			Nullable:     c.Nullable,
			IsList:       c.IsList,
			IsForeignKey: c.IsForeignKey,
			RelatedType:  c.RelatedType,
		}
	}
	return wire
}

// Manager satisfies pagecache.Source, so the shared page cache can
// resolve a table name back to its file manager.
func (t *Table) Manager(table string) (*pagefile.Manager, bool) {
	if table != t.Name {
		return nil, false
	}
	return t.files, true
}

func (t *Table) rebuildHashIndex() error {
	count, err := t.files.PageCount()
	if err != nil {
		return err
	}
	t.indexes.PrimaryKey.Clear()
	p := tpage.New()
	for pageNo := 1; pageNo <= count; pageNo++ {
		// read directly from the file rather than through the shared
		// cache: at open time this table is not yet registered as a
		// pagecache.Source, so Get(t.Name, ...) would have nothing to
		// resolve t.Name against.
		if err := t.files.ReadPage(pageNo, p); err != nil {
			return err
		}
		raw := p.ReadOnlyBytes()
		length := readLength(raw)
		if length == 0 {
			continue
		}
		ids, _, err := codec.DecodeRows(raw[4 : 4+length])
		if err != nil {
			// a corrupt data page is not the hash index's concern here;
			// propagate as an IoError, the table is expected to be opened
			// against data this engine itself wrote.
			return fmt.Errorf("%w: decoding page %d of table %q: %s", common.ErrIoError, pageNo, t.Name, err)
		}
		for slot, id := range ids {
			t.indexes.PrimaryKey.Insert(id, hashidx.Location{PageNo: pageNo, Slot: slot})
		}
	}
	if count+1 > t.nextPage {
		t.nextPage = count + 1
	}
	return nil
}

func readLength(raw []byte) int {
	if len(raw) < 4 {
		return 0
	}
	return int(raw[0]) | int(raw[1])<<8 | int(raw[2])<<16 | int(raw[3])<<24
}

// Insert stores row under id, updating every index. It fails with
// common.ErrDuplicateKey if id already exists across the memtable and
// persisted pages.
func (t *Table) Insert(ctx context.Context, id common.ID, row Row) error {
	if interrupt.IsCancelled(ctx) {
		return common.ErrCancelled
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists, deleted := t.mem.Get(id); exists && !deleted {
		return fmt.Errorf("%w: %s", common.ErrDuplicateKey, id)
	} else if !exists {
		if _, exists := t.indexes.PrimaryKey.Find(id); exists {
			return fmt.Errorf("%w: %s", common.ErrDuplicateKey, id)
		}
	}

	size := rowEncodedSize(row)
	t.mem.Put(id, row, size)
	t.indexColumns(id, row)

	if t.mem.ShouldFlush() {
		return t.flushLocked()
	}
	return nil
}

// Find returns the row for id, consulting the memtable first and then
// the persisted pages via the hash index, per the spec's read path.
func (t *Table) Find(ctx context.Context, id common.ID) (Row, bool, error) {
	if interrupt.IsCancelled(ctx) {
		return nil, false, common.ErrCancelled
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.findLocked(id)
}

func (t *Table) findLocked(id common.ID) (Row, bool, error) {
	if row, exists, deleted := t.mem.Get(id); exists {
		if deleted {
			return nil, false, nil
		}
		return row, true, nil
	}

	loc, exists := t.indexes.PrimaryKey.Find(id)
	if !exists {
		return nil, false, nil
	}
	p, err := t.cache.Get(t.Name, loc.PageNo)
	if err != nil {
		return nil, false, err
	}
	raw := p.ReadOnlyBytes()
	length := readLength(raw)
	ids, rows, err := codec.DecodeRows(raw[4 : 4+length])
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", common.ErrIoError, err)
	}
	if loc.Slot >= len(ids) || ids[loc.Slot] != id {
		return nil, false, fmt.Errorf("%w: stale hash index location for %s", common.ErrIndexCorrupt, id)
	}
	return rows[loc.Slot], true, nil
}

// Update replaces the row for id, reindexing any columns whose value
// changed. It fails with common.ErrNotFound if id is absent.
func (t *Table) Update(ctx context.Context, id common.ID, row Row) error {
	if interrupt.IsCancelled(ctx) {
		return common.ErrCancelled
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	old, exists, err := t.findLocked(id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", common.ErrNotFound, id)
	}

	t.unindexColumns(id, old)
	t.indexColumns(id, row)
	t.mem.Put(id, row, rowEncodedSize(row))

	if t.mem.ShouldFlush() {
		return t.flushLocked()
	}
	return nil
}

// Delete removes id from storage and all indexes. It fails with
// common.ErrNotFound if id is absent. Persisted pages are not
// rewritten immediately; the delete is recorded as a memtable
// tombstone and the id is dropped for good the next time flushLocked
// compacts the table's pages (see flushLocked).
func (t *Table) Delete(ctx context.Context, id common.ID) error {
	if interrupt.IsCancelled(ctx) {
		return common.ErrCancelled
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	old, exists, err := t.findLocked(id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", common.ErrNotFound, id)
	}

	t.unindexColumns(id, old)
	t.indexes.PrimaryKey.Remove(id)
	t.mem.Delete(id)
	return nil
}

func (t *Table) indexColumns(id common.ID, row Row) {
	for i, col := range t.Columns {
		if i >= len(row) || row[i].Null {
			continue
		}
		t.indexes.InsertInto(col.Name, row[i], id)
	}
}

func (t *Table) unindexColumns(id common.ID, row Row) {
	for i, col := range t.Columns {
		if i >= len(row) || row[i].Null {
			continue
		}
		t.indexes.RemoveFrom(col.Name, row[i], id)
	}
}

func rowEncodedSize(row Row) int {
	size := 0
	for _, v := range row {
		size += 16
		if !v.Null && !v.IsList {
			size += len(v.Str())
		}
	}
	return size
}

// Indexes exposes the table's index manager for the query executor's
// adaptive-index and range-scan use.
func (t *Table) Indexes() *manager.Manager { return t.indexes }

// RLock / RUnlock expose the table's read lock to other packages. The
// query executor does not call them: each Find and ScanAll takes this
// table's read lock for that one call only, and no lock is held across
// tables for the length of a query.
func (t *Table) RLock()   { t.mu.RLock() }
func (t *Table) RUnlock() { t.mu.RUnlock() }

// Flush reconciles the memtable into persisted pages: the table's live
// rows are rewritten as consecutive data pages from page 1 through the
// shared cache (rows already on pages keep their order, ids new to this
// flush follow in the memtable's key order), the memtable is cleared
// and index sidecars are persisted.
func (t *Table) Flush(ctx context.Context) error {
	if interrupt.IsCancelled(ctx) {
		return common.ErrCancelled
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

// flushLocked reconciles the memtable into persisted pages. Unlike a
// naive append-only flush, it rewrites the table's *entire* live row
// set on every call: it rereads every currently persisted page,
// overlays the buffered memtable writes (deletes removing a row,
// updates replacing it), and rewrites the merged, tombstone-free
// result as a fresh run of pages starting at page 1. This is what
// makes Delete's tombstone actually stick once persisted: without
// this compaction, a deleted id's old page bytes would outlive
// t.mem.Clear() and resurface on the next ScanAll or on reopen via
// rebuildHashIndex, since neither ever consults a persisted tombstone
// (the wire format has none). Any pages left over from a previous,
// larger layout are explicitly zeroed so they read back as empty.
func (t *Table) flushLocked() error {
	if t.mem.Size() == 0 {
		return t.indexes.PersistAll()
	}

	persistedIDs, persistedRows, err := t.readPersistedPagesLocked()
	if err != nil {
		return err
	}

	live := make(map[common.ID]Row, len(persistedIDs)+t.mem.Size())
	order := make([]common.ID, 0, len(persistedIDs)+t.mem.Size())
	for i, id := range persistedIDs {
		live[id] = persistedRows[i]
		order = append(order, id)
	}
	t.mem.ForEach(func(id common.ID, row Row, deleted bool) {
		if _, existed := live[id]; !existed {
			order = append(order, id)
		}
		if deleted {
			delete(live, id)
			return
		}
		live[id] = row
	})

	ids := make([]common.ID, 0, len(order))
	rows := make([]Row, 0, len(order))
	for _, id := range order {
		if row, exists := live[id]; exists {
			ids = append(ids, id)
			rows = append(rows, row)
		}
	}

	t.indexes.PrimaryKey.Clear()
	oldNextPage := t.nextPage
	t.nextPage = 1
	if err := t.writeCompactedPages(ids, rows); err != nil {
		return err
	}
	for pageNo := t.nextPage; pageNo < oldNextPage; pageNo++ {
		if err := t.writeDataPage(pageNo, nil); err != nil {
			return err
		}
	}

	t.mem.Clear()
	if err := t.cache.Flush(t.Name); err != nil {
		return err
	}
	return t.indexes.PersistAll()
}

// readPersistedPagesLocked decodes every currently persisted data page
// into its (id, row) pairs, with no memtable overlay, for flushLocked's
// compaction pass to merge against the buffered writes.
func (t *Table) readPersistedPagesLocked() ([]common.ID, []Row, error) {
	count, err := t.files.PageCount()
	if err != nil {
		return nil, nil, err
	}
	var ids []common.ID
	var rows []Row
	for pageNo := 1; pageNo <= count; pageNo++ {
		p, err := t.cache.Get(t.Name, pageNo)
		if err != nil {
			return nil, nil, err
		}
		raw := p.ReadOnlyBytes()
		length := readLength(raw)
		if length == 0 {
			continue
		}
		pageIDs, pageRows, err := codec.DecodeRows(raw[4 : 4+length])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: decoding page %d of table %q: %s", common.ErrIoError, pageNo, t.Name, err)
		}
		ids = append(ids, pageIDs...)
		rows = append(rows, pageRows...)
	}
	return ids, rows, nil
}

// writeCompactedPages writes ids/rows as a fresh run of pages starting
// at t.nextPage (always 1 at the point flushLocked calls this),
// installing each id's new hash index location as it goes.
func (t *Table) writeCompactedPages(ids []common.ID, rows []Row) error {
	if len(ids) == 0 {
		return nil
	}
	payload, err := codec.EncodeRows(ids, rows)
	if err != nil {
		return err
	}
	if len(payload) > common.PageSize-4 {
		return t.flushInGroups(ids, rows)
	}
	pageNo := t.nextPage
	t.nextPage++
	if err := t.writeDataPage(pageNo, payload); err != nil {
		return err
	}
	for slot, id := range ids {
		t.indexes.PrimaryKey.Insert(id, hashidx.Location{PageNo: pageNo, Slot: slot})
	}
	return nil
}

// flushInGroups splits a too-large batch across multiple pages, each
// independently encoded and length-prefixed, when the table's whole
// compacted live row set does not fit in one page.
func (t *Table) flushInGroups(ids []common.ID, rows []Row) error {
	const groupSize = 64
	for start := 0; start < len(ids); start += groupSize {
		end := start + groupSize
		if end > len(ids) {
			end = len(ids)
		}
		payload, err := codec.EncodeRows(ids[start:end], rows[start:end])
		if err != nil {
			return err
		}
		if len(payload) > common.PageSize-4 {
			return fmt.Errorf("%w: record group too large to fit in one page", common.ErrIoError)
		}
		pageNo := t.nextPage
		t.nextPage++
		if err := t.writeDataPage(pageNo, payload); err != nil {
			return err
		}
		for slot, id := range ids[start:end] {
			t.indexes.PrimaryKey.Insert(id, hashidx.Location{PageNo: pageNo, Slot: slot})
		}
	}
	return nil
}

func (t *Table) writeDataPage(pageNo int, payload []byte) error {
	p, err := t.cache.Get(t.Name, pageNo)
	if err != nil {
		return err
	}
	buf := p.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = byte(len(payload))
	buf[1] = byte(len(payload) >> 8)
	buf[2] = byte(len(payload) >> 16)
	buf[3] = byte(len(payload) >> 24)
	copy(buf[4:], payload)
	return t.cache.Put(t.Name, pageNo, p)
}

// ScanAll returns every live (id, row) pair across the memtable and
// persisted pages, sorted by ascending id.
func (t *Table) ScanAll(ctx context.Context) ([]common.ID, []Row, error) {
	if interrupt.IsCancelled(ctx) {
		return nil, nil, common.ErrCancelled
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[common.ID]bool)
	var ids []common.ID
	var rows []Row

	count, err := t.files.PageCount()
	if err != nil {
		return nil, nil, err
	}
	for pageNo := 1; pageNo <= count; pageNo++ {
		p, err := t.cache.Get(t.Name, pageNo)
		if err != nil {
			return nil, nil, err
		}
		raw := p.ReadOnlyBytes()
		length := readLength(raw)
		if length == 0 {
			continue
		}
		pageIDs, pageRows, err := codec.DecodeRows(raw[4 : 4+length])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", common.ErrIoError, err)
		}
		for i, id := range pageIDs {
			if seen[id] {
				continue
			}
			if row, exists, deleted := t.mem.Get(id); exists {
				if !deleted {
					seen[id] = true
					ids = append(ids, id)
					rows = append(rows, row)
				}
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			rows = append(rows, pageRows[i])
		}
	}

	t.mem.ForEach(func(id common.ID, row Row, deleted bool) {
		if deleted || seen[id] {
			return
		}
		ids = append(ids, id)
		rows = append(rows, row)
	})

	sortByID(ids, rows)
	return ids, rows, nil
}

type idRow struct {
	id  common.ID
	row Row
}

// sortByID orders ids/rows by ascending id, using x/exp/slices' generic
// SortFunc over a zipped entry slice since the two parallel slices can't
// be sorted directly by key.
func sortByID(ids []common.ID, rows []Row) {
	entries := make([]idRow, len(ids))
	for i := range ids {
		entries[i] = idRow{ids[i], rows[i]}
	}
	slices.SortFunc(entries, func(a, b idRow) bool { return a.id < b.id })
	for i, e := range entries {
		ids[i] = e.id
		rows[i] = e.row
	}
}

// Close flushes and closes the table's backing file and releases its
// lock.
func (t *Table) Close(ctx context.Context) error {
	if err := t.Flush(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Evict(t.Name)
	return t.files.Close()
}

// GetMemoryFootprint reports the table's in-memory size.
func (t *Table) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(0)
	mf.AddChild("memtable", t.mem.GetMemoryFootprint())
	mf.AddChild("indexes", t.indexes.GetMemoryFootprint())
	return mf
}
