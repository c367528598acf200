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

import "github.com/typedstore/typedstore/common"

// Posting is one (key, id) pair as it appears in a leaf, used for
// exporting/importing a tree to/from a sidecar backend.
type Posting struct {
	Key common.ScalarValue
	ID  common.ID
}

// Sidecar persists and restores the postings of a B-tree index for one
// table column. Implementations live in the filesidecar and ldbsidecar
// subpackages; selecting between them is a schema.Options choice.
type Sidecar interface {
	// Save persists the full set of postings, replacing any previous
	// contents.
	Save(postings []Posting) error
	// Load restores the previously saved postings. It returns
	// common.ErrIndexCorrupt (via the common sentinel) if the stored
	// data fails its integrity check. index/manager reacts by dropping
	// that index rather than rebuilding it; it is recreated from the
	// table's pages only when RecordAccess crosses the threshold again.
	Load() ([]Posting, error)
	Close() error
}

// Export flattens the tree into a Posting slice suitable for handing to
// a Sidecar, in ascending key order.
func (t *Tree) Export() []Posting {
	var out []Posting
	t.ForEach(func(key common.ScalarValue, id common.ID) {
		out = append(out, Posting{Key: key, ID: id})
	})
	return out
}

// Import rebuilds a tree's contents from a previously exported posting
// list, preserving insertion order within each key.
func Import(order int, postings []Posting) *Tree {
	t := NewTree(order)
	for _, p := range postings {
		t.Insert(p.Key, p.ID)
	}
	return t
}
