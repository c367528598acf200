// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ldbsidecar is the optional goleveldb-backed B-tree index
// sidecar, selected via schema.Options.IndexSidecarBackend for tables
// whose adaptively created indexes grow large enough that an LSM-tree
// amortizes random rewrites better than the default flat-file sidecar.
// It is grounded on the direct use of github.com/syndtr/goleveldb
// throughout this module's teacher lineage (e.g.
// backend/store/ldb/leveldb.go), stripped of that code's
// hash-tree/snapshot machinery, which is out of scope here.
package ldbsidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/typedstore/typedstore/codec"
	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/index/btree"
)

// Sidecar persists a B-tree's postings as one key per posting in a
// dedicated goleveldb database directory, keyed by a monotonically
// increasing sequence number so Load can replay them in the order they
// were written (insertion order within a key is significant per the
// B-tree's duplicate tie-break rule).
type Sidecar struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) a goleveldb database at dir.
func Open(dir string) (*Sidecar, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening leveldb index sidecar at %s: %s", common.ErrIoError, dir, err)
	}
	return &Sidecar{db: db}, nil
}

func sequenceKey(i int) []byte {
	return []byte(fmt.Sprintf("%010d", i))
}

// Save replaces the sidecar's contents with postings, written in order
// under sequential keys.
func (s *Sidecar) Save(postings []btree.Posting) error {
	batch := new(leveldb.Batch)

	iter := s.db.NewIterator(util.BytesPrefix(nil), nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: clearing leveldb index sidecar: %s", common.ErrIoError, err)
	}

	for i, p := range postings {
		payload, err := codec.EncodePostings([]common.ScalarValue{p.Key}, []common.ID{p.ID})
		if err != nil {
			return err
		}
		batch.Put(sequenceKey(i), payload)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("%w: writing leveldb index sidecar: %s", common.ErrIoError, err)
	}
	return nil
}

// Load replays the sidecar's postings in the order they were saved.
func (s *Sidecar) Load() ([]btree.Posting, error) {
	var out []btree.Posting
	iter := s.db.NewIterator(util.BytesPrefix(nil), nil)
	defer iter.Release()
	for iter.Next() {
		keys, ids, err := codec.DecodePostings(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: leveldb index sidecar entry: %s", common.ErrIndexCorrupt, err)
		}
		if len(keys) != 1 {
			return nil, fmt.Errorf("%w: leveldb index sidecar entry malformed", common.ErrIndexCorrupt)
		}
		out = append(out, btree.Posting{Key: keys[0], ID: ids[0]})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: reading leveldb index sidecar: %s", common.ErrIoError, err)
	}
	return out, nil
}

func (s *Sidecar) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing leveldb index sidecar: %s", common.ErrIoError, err)
	}
	return nil
}

// Store locates the goleveldb sidecar directories for a table's indexed
// columns under one <table>_indexes directory, each named <column>.ldb.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating the directory if it
// does not yet exist.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating index sidecar directory %s: %s", common.ErrIoError, dir, err)
	}
	return &Store{dir: dir}, nil
}

// List returns the names of columns with a persisted sidecar database.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing index sidecar directory %s: %s", common.ErrIoError, s.dir, err)
	}
	var cols []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".ldb") {
			continue
		}
		cols = append(cols, strings.TrimSuffix(e.Name(), ".ldb"))
	}
	return cols, nil
}

// Open opens (creating if necessary) the sidecar database for column.
func (s *Store) Open(column string) (btree.Sidecar, error) {
	return Open(filepath.Join(s.dir, column+".ldb"))
}
