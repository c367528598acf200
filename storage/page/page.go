// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package page defines the fixed-size buffer unit that the file manager
// and page cache exchange, grounded on backend/pagepool's Page
// interface and backend/array/pagedarray's concrete page type.
package page

import (
	"unsafe"

	"github.com/typedstore/typedstore/common"
)

// Page is a fixed common.PageSize buffer holding either table metadata
// (page 0) or a serialized record group (pages >= 1). It tracks a dirty
// flag exactly like backend/pagepool.Page so the cache only writes back
// pages that were actually modified.
type Page struct {
	data  [common.PageSize]byte
	dirty bool
}

// New creates an empty page.
func New() *Page {
	return &Page{}
}

// ToBytes copies this page's contents into dst, which must be at least
// common.PageSize long.
func (p *Page) ToBytes(dst []byte) {
	copy(dst, p.data[:])
}

// FromBytes replaces this page's contents with src, which must be at
// least common.PageSize long.
func (p *Page) FromBytes(src []byte) {
	copy(p.data[:], src)
}

// Bytes exposes the page's underlying buffer for in-place writes,
// marking it dirty.
func (p *Page) Bytes() []byte {
	p.dirty = true
	return p.data[:]
}

// ReadOnlyBytes exposes the page's underlying buffer without marking it
// dirty.
func (p *Page) ReadOnlyBytes() []byte {
	return p.data[:]
}

// Clear zeroes the page and clears its dirty flag; the file manager uses
// it for a page read past the end of the file. Pages are not pooled or
// kept on a free list: the page cache allocates a new page on every miss.
func (p *Page) Clear() {
	p.data = [common.PageSize]byte{}
	p.dirty = false
}

// Size returns the page size in bytes.
func (p *Page) Size() int { return common.PageSize }

// IsDirty reports whether the page was modified since it was last
// persisted.
func (p *Page) IsDirty() bool { return p.dirty }

// SetDirty sets the dirty flag explicitly.
func (p *Page) SetDirty(dirty bool) { p.dirty = dirty }

// GetMemoryFootprint reports the page's in-memory size.
func (p *Page) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*p))
}
