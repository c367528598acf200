// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package page

import (
	"testing"

	"github.com/typedstore/typedstore/common"
)

func TestPage_BytesMarksDirty(t *testing.T) {
	p := New()
	if p.IsDirty() {
		t.Fatal("a new page should not start dirty")
	}
	buf := p.Bytes()
	buf[0] = 42
	if !p.IsDirty() {
		t.Fatal("Bytes() should mark the page dirty")
	}
	if p.ReadOnlyBytes()[0] != 42 {
		t.Fatal("write through Bytes() should be visible via ReadOnlyBytes()")
	}
}

func TestPage_ReadOnlyBytesDoesNotMarkDirty(t *testing.T) {
	p := New()
	_ = p.ReadOnlyBytes()
	if p.IsDirty() {
		t.Fatal("ReadOnlyBytes() must not mark the page dirty")
	}
}

func TestPage_ToFromBytesRoundTrip(t *testing.T) {
	src := make([]byte, common.PageSize)
	src[0], src[common.PageSize-1] = 1, 2

	p := New()
	p.FromBytes(src)

	dst := make([]byte, common.PageSize)
	p.ToBytes(dst)
	if dst[0] != 1 || dst[common.PageSize-1] != 2 {
		t.Fatalf("got dst[0]=%d dst[last]=%d, want 1, 2", dst[0], dst[common.PageSize-1])
	}
}

func TestPage_ClearResetsContentsAndDirtyFlag(t *testing.T) {
	p := New()
	p.Bytes()[0] = 9
	p.Clear()
	if p.IsDirty() {
		t.Fatal("Clear() should reset the dirty flag")
	}
	if p.ReadOnlyBytes()[0] != 0 {
		t.Fatal("Clear() should zero the page contents")
	}
}

func TestPage_SizeAndSetDirty(t *testing.T) {
	p := New()
	if p.Size() != common.PageSize {
		t.Fatalf("got Size %d, want %d", p.Size(), common.PageSize)
	}
	p.SetDirty(true)
	if !p.IsDirty() {
		t.Fatal("SetDirty(true) should mark the page dirty")
	}
	p.SetDirty(false)
	if p.IsDirty() {
		t.Fatal("SetDirty(false) should clear the dirty flag")
	}
}
