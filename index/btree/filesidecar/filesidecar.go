// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package filesidecar is the default B-tree index sidecar backend: a
// single flat file at <db>/<table>_indexes/<column>.idx, grounded on
// backend/depot/file/file.go's length-prefixed offset/contents file
// pattern. A golang.org/x/crypto/sha3 checksum guards against partial
// writes; a mismatch on Load is surfaced as common.ErrIndexCorrupt, on
// which the index manager logs a warning and drops that index until
// RecordAccess recreates it from table pages.
package filesidecar

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/typedstore/typedstore/codec"
	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/index/btree"
)

const checksumSize = 32

// Sidecar persists a B-tree's postings to a single file as
// [u32 length][payload][32-byte sha3-256 checksum of payload].
type Sidecar struct {
	path string
}

// New returns a sidecar bound to the given file path. The path's parent
// directory must already exist (NewStore creates <db>/<table>_indexes/).
func New(path string) *Sidecar {
	return &Sidecar{path: path}
}

func (s *Sidecar) Save(postings []btree.Posting) error {
	keys := make([]common.ScalarValue, len(postings))
	ids := make([]common.ID, len(postings))
	for i, p := range postings {
		keys[i] = p.Key
		ids[i] = p.ID
	}
	payload, err := codec.EncodePostings(keys, ids)
	if err != nil {
		return err
	}

	sum := sha3.Sum256(payload)
	buf := make([]byte, 4+len(payload)+checksumSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(payload)))
	copy(buf[4:4+len(payload)], payload)
	copy(buf[4+len(payload):], sum[:])

	if err := os.WriteFile(s.path, buf, 0600); err != nil {
		return fmt.Errorf("%w: writing index sidecar %s: %s", common.ErrIoError, s.path, err)
	}
	return nil
}

func (s *Sidecar) Load() ([]btree.Posting, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading index sidecar %s: %s", common.ErrIoError, s.path, err)
	}
	if len(buf) < 4+checksumSize {
		return nil, fmt.Errorf("%w: index sidecar %s truncated", common.ErrIndexCorrupt, s.path)
	}
	length := binary.LittleEndian.Uint32(buf[0:4])
	if int(length) != len(buf)-4-checksumSize {
		return nil, fmt.Errorf("%w: index sidecar %s length mismatch", common.ErrIndexCorrupt, s.path)
	}
	payload := buf[4 : 4+length]
	storedSum := buf[4+length:]
	sum := sha3.Sum256(payload)
	if string(sum[:]) != string(storedSum) {
		return nil, fmt.Errorf("%w: index sidecar %s checksum mismatch", common.ErrIndexCorrupt, s.path)
	}

	keys, ids, err := codec.DecodePostings(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: index sidecar %s: %s", common.ErrIndexCorrupt, s.path, err)
	}
	postings := make([]btree.Posting, len(keys))
	for i := range keys {
		postings[i] = btree.Posting{Key: keys[i], ID: ids[i]}
	}
	return postings, nil
}

func (s *Sidecar) Close() error { return nil }

// Store locates the sidecar files for a table's indexed columns under
// one <table>_indexes directory, each named <column>.idx.
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

// List returns the names of columns with a persisted sidecar file.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing index sidecar directory %s: %s", common.ErrIoError, s.dir, err)
	}
	var cols []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".idx" {
			continue
		}
		cols = append(cols, strings.TrimSuffix(e.Name(), ".idx"))
	}
	return cols, nil
}

// Open returns the sidecar for column. The file is created lazily by
// the first Save; Open never fails for a column with no prior data.
func (s *Store) Open(column string) (btree.Sidecar, error) {
	return New(filepath.Join(s.dir, column+".idx")), nil
}
