// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package pagefile opens one file per table and performs page-granular
// reads and writes at a fixed offset, grounded on
// backend/pagepool/pagestoragefile.go's FilesPageStorage. Page 0 is
// reserved for length-prefixed table metadata; pages 1..N hold
// serialized record groups.
package pagefile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/storage/page"
)

const metadataPage = 0

// Manager owns one table's backing file plus the lock file guarding it
// against concurrent opens from another process, per common.LockFile.
type Manager struct {
	file *os.File
	lock common.LockFile
	path string
}

// Open opens (creating if necessary) the backing file for a table at
// dir/name.tbl, acquiring an exclusive inter-process lock at
// dir/name.lock.
func Open(dir, name string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating table directory: %s", common.ErrIoError, err)
	}

	lockPath := filepath.Join(dir, name+".lock")
	lock, lockErr := common.CreateLockFile(lockPath)
	if lockErr != nil {
		if !os.IsExist(lockErr) {
			return nil, fmt.Errorf("%w: acquiring table lock: %s", common.ErrIoError, lockErr)
		}
		// a stale lock from an unclean shutdown; the file manager does
		// not attempt recovery here, it is surfaced as an IoError so the
		// caller can decide whether to clear it.
		return nil, fmt.Errorf("%w: table %q is already locked at %s", common.ErrIoError, name, lockPath)
	}

	path := filepath.Join(dir, name+".tbl")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("%w: opening table file: %s", common.ErrIoError, err)
	}

	return &Manager{file: f, lock: lock, path: path}, nil
}

// ReadPage loads page pageNo into p. Reading a page beyond the current
// end of file yields a cleared page rather than an error, matching the
// "page does not yet exist" behavior of the teacher's file storage.
func (m *Manager) ReadPage(pageNo int, p *page.Page) error {
	offset := int64(pageNo) * common.PageSize
	buf := make([]byte, common.PageSize)
	if _, err := m.file.ReadAt(buf, offset); err != nil {
		if err == io.EOF || isShortRead(err) {
			p.Clear()
			return nil
		}
		return fmt.Errorf("%w: reading page %d: %s", common.ErrIoError, pageNo, err)
	}
	p.FromBytes(buf)
	p.SetDirty(false)
	return nil
}

func isShortRead(err error) bool {
	// os.File.ReadAt returns io.ErrUnexpectedEOF style errors wrapped;
	// treat any read past EOF uniformly as "page not yet written".
	return err == io.ErrUnexpectedEOF
}

// WritePage persists p at pageNo, regardless of its dirty flag; callers
// (the page cache) are responsible for only calling this for pages that
// actually need writing back.
func (m *Manager) WritePage(pageNo int, p *page.Page) error {
	buf := make([]byte, common.PageSize)
	p.ToBytes(buf)
	offset := int64(pageNo) * common.PageSize
	if _, err := m.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("%w: writing page %d: %s", common.ErrIoError, pageNo, err)
	}
	return nil
}

// ReadMetadata reads and length-prefix-decodes page 0.
func (m *Manager) ReadMetadata() ([]byte, error) {
	buf := make([]byte, common.PageSize)
	if _, err := m.file.ReadAt(buf, 0); err != nil {
		if err == io.EOF || isShortRead(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading metadata page: %s", common.ErrIoError, err)
	}
	length := binary.LittleEndian.Uint32(buf[0:4])
	if length == 0 {
		return nil, nil
	}
	if int(length) > common.PageSize-4 {
		return nil, fmt.Errorf("%w: metadata length %d exceeds page capacity", common.ErrIoError, length)
	}
	out := make([]byte, length)
	copy(out, buf[4:4+length])
	return out, nil
}

// WriteMetadata length-prefix-encodes and zero-pads data to page 0.
func (m *Manager) WriteMetadata(data []byte) error {
	if len(data) > common.PageSize-4 {
		return fmt.Errorf("%w: metadata of %d bytes exceeds page capacity", common.ErrIoError, len(data))
	}
	buf := make([]byte, common.PageSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(data)))
	copy(buf[4:], data)
	if _, err := m.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("%w: writing metadata page: %s", common.ErrIoError, err)
	}
	return nil
}

// PageCount returns the number of data pages (excluding page 0)
// currently allocated in the file.
func (m *Manager) PageCount() (int, error) {
	info, err := m.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat table file: %s", common.ErrIoError, err)
	}
	total := int(info.Size() / common.PageSize)
	if total <= 1 {
		return 0, nil
	}
	return total - 1, nil
}

// Sync flushes the OS file buffer to stable storage. This module makes
// no durability guarantees beyond this best-effort sync; there is no
// write-ahead log (see Non-goals in SPEC_FULL.md).
func (m *Manager) Sync() error {
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync table file: %s", common.ErrIoError, err)
	}
	return nil
}

// Close syncs and closes the table file and releases its lock.
func (m *Manager) Close() error {
	syncErr := m.Sync()
	closeErr := m.file.Close()
	lockErr := m.lock.Release()
	if syncErr != nil {
		return syncErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing table file: %s", common.ErrIoError, closeErr)
	}
	return lockErr
}
