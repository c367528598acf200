// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package btree

import (
	"testing"

	"github.com/typedstore/typedstore/common"
)

func idsEqual(t *testing.T, got []common.ID, want ...common.ID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTree_InsertFind(t *testing.T) {
	tr := NewTree(3)
	tr.Insert(common.IntValue(1), "a")
	tr.Insert(common.IntValue(1), "b")
	tr.Insert(common.IntValue(2), "c")

	idsEqual(t, tr.Find(common.IntValue(1)), "a", "b")
	idsEqual(t, tr.Find(common.IntValue(2)), "c")
	if ids := tr.Find(common.IntValue(3)); len(ids) != 0 {
		t.Fatalf("got %v, want empty for an absent key", ids)
	}
}

func TestTree_ForcesSplitsWithSmallOrder(t *testing.T) {
	tr := NewTree(3)
	for i := int64(0); i < 50; i++ {
		tr.Insert(common.IntValue(i), common.ID(string(rune('a'+i%26))))
	}
	if tr.Size() != 50 {
		t.Fatalf("got size %d, want 50", tr.Size())
	}
	all := tr.GetAllSorted()
	if len(all) != 50 {
		t.Fatalf("got %d ids from GetAllSorted, want 50", len(all))
	}

	for i := int64(0); i < 50; i++ {
		ids := tr.Find(common.IntValue(i))
		if len(ids) != 1 {
			t.Fatalf("key %d: got %v, want exactly one posting", i, ids)
		}
	}
}

func TestTree_RangeAndComparisonQueries(t *testing.T) {
	tr := NewTree(4)
	for i := int64(1); i <= 10; i++ {
		tr.Insert(common.IntValue(i), common.ID(common.ID(string(rune('0'+i)))))
	}

	if got := tr.FindRange(common.IntValue(3), common.IntValue(5)); len(got) != 3 {
		t.Fatalf("got %d ids in range [3,5], want 3", len(got))
	}
	if got := tr.FindGreaterThan(common.IntValue(8)); len(got) != 2 {
		t.Fatalf("got %d ids greater than 8, want 2 (9, 10)", len(got))
	}
	if got := tr.FindLessThan(common.IntValue(3)); len(got) != 2 {
		t.Fatalf("got %d ids less than 3, want 2 (1, 2)", len(got))
	}
}

func TestTree_RemoveReclaimsPostingsAndPrunes(t *testing.T) {
	tr := NewTree(3)
	for i := int64(0); i < 30; i++ {
		tr.Insert(common.IntValue(i), "x")
	}
	for i := int64(0); i < 30; i++ {
		tr.Remove(common.IntValue(i), "x")
	}
	if tr.Size() != 0 {
		t.Fatalf("got size %d after removing everything, want 0", tr.Size())
	}
	if ids := tr.Find(common.IntValue(5)); len(ids) != 0 {
		t.Fatalf("got %v, want empty after removal", ids)
	}
	// tree must still accept fresh inserts after being fully drained.
	tr.Insert(common.IntValue(100), "y")
	idsEqual(t, tr.Find(common.IntValue(100)), "y")
}

func TestTree_ExportImportRoundTrip(t *testing.T) {
	tr := NewTree(3)
	tr.Insert(common.StringValue("b"), "1")
	tr.Insert(common.StringValue("a"), "2")
	tr.Insert(common.StringValue("a"), "3")

	postings := tr.Export()
	restored := Import(3, postings)

	idsEqual(t, restored.Find(common.StringValue("a")), "2", "3")
	idsEqual(t, restored.Find(common.StringValue("b")), "1")
}
