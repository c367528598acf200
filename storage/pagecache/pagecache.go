// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package pagecache implements the bounded (table-id, page-number) ->
// page mapping described in the spec, built directly on
// common.LruCache and modeled on backend/pagepool.PagePool's
// get/evict/store-back shape.
package pagecache

import (
	"fmt"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/storage/page"
	"github.com/typedstore/typedstore/storage/pagefile"
)

// DefaultCapacity is the default number of pages held in memory, per
// the spec's page cache default.
const DefaultCapacity = 100

// Key identifies a page by its owning table and page number.
type Key struct {
	Table  string
	PageNo int
}

// Source resolves a table name to the file manager responsible for it.
// The source is fixed when the cache is created (schema.Catalog passes
// itself and resolves names to its open tables' files), mirroring how
// backend/pagepool.PagePool is handed a PageStorage implementation at
// construction time.
type Source interface {
	Manager(table string) (*pagefile.Manager, bool)
}

// Cache is a shared, bounded page cache used by every open table.
type Cache struct {
	cache  *common.LruCache[Key, *page.Page]
	source Source
}

// New creates a page cache with the given capacity backed by source.
func New(capacity int, source Source) *Cache {
	return &Cache{cache: common.NewLruCache[Key, *page.Page](capacity), source: source}
}

// Get returns the page for (table, pageNo), loading it from the file
// manager on a miss. The returned page must not be retained past the
// next call into the cache for the same key without re-fetching, since
// it may be evicted and reused for another page.
func (c *Cache) Get(table string, pageNo int) (*page.Page, error) {
	key := Key{Table: table, PageNo: pageNo}
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}

	mgr, ok := c.source.Manager(table)
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", common.ErrIoError, table)
	}
	p := page.New()
	if err := mgr.ReadPage(pageNo, p); err != nil {
		return nil, err
	}

	if err := c.put(key, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Put inserts or replaces a page in the cache, e.g. after a fresh write
// that has not yet been read back. The page is marked dirty so it will
// be written back on eviction or Flush.
func (c *Cache) Put(table string, pageNo int, p *page.Page) error {
	p.SetDirty(true)
	return c.put(Key{Table: table, PageNo: pageNo}, p)
}

func (c *Cache) put(key Key, p *page.Page) error {
	evictedKey, evictedPage, evicted := c.cache.Set(key, p)
	if evicted {
		return c.writeBack(evictedKey, evictedPage)
	}
	return nil
}

func (c *Cache) writeBack(key Key, p *page.Page) error {
	if !p.IsDirty() {
		return nil
	}
	mgr, ok := c.source.Manager(key.Table)
	if !ok {
		return fmt.Errorf("%w: unknown table %q", common.ErrIoError, key.Table)
	}
	if err := mgr.WritePage(key.PageNo, p); err != nil {
		return err
	}
	p.SetDirty(false)
	return nil
}

// Flush writes back every dirty page belonging to table.
func (c *Cache) Flush(table string) error {
	var firstErr error
	c.cache.IterateMutable(func(key Key, p **page.Page) bool {
		if key.Table != table {
			return true
		}
		if err := c.writeBack(key, *p); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// Evict drops every cached page belonging to table without writing
// back; Table.Close calls it after flushing the table.
func (c *Cache) Evict(table string) {
	var keys []Key
	c.cache.Iterate(func(key Key, _ *page.Page) bool {
		if key.Table == table {
			keys = append(keys, key)
		}
		return true
	})
	for _, key := range keys {
		c.cache.Remove(key)
	}
}

// GetMemoryFootprint reports the cache's in-memory size.
func (c *Cache) GetMemoryFootprint() *common.MemoryFootprint {
	return c.cache.GetDynamicMemoryFootprint(func(p *page.Page) uintptr {
		return uintptr(p.Size())
	})
}
