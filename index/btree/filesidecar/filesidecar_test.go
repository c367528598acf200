// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package filesidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/index/btree"
)

func TestSidecar_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email.idx")
	s := New(path)

	postings := []btree.Posting{
		{Key: common.StringValue("a@example.com"), ID: "1"},
		{Key: common.StringValue("b@example.com"), ID: "2"},
	}
	if err := s.Save(postings); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("got %v, want the saved postings back", got)
	}
}

func TestSidecar_LoadMissingFileReturnsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.idx"))
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load of a missing sidecar should not error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want no postings", got)
	}
}

func TestSidecar_LoadDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email.idx")
	s := New(path)
	if err := s.Save([]btree.Posting{{Key: common.StringValue("a"), ID: "1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	buf[len(buf)-1] ^= 0xFF
	if err := os.WriteFile(path, buf, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := s.Load(); err == nil {
		t.Fatal("expected a corrupted sidecar to fail Load")
	}
}

func TestStore_ListOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	sc, err := store.Open("email")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sc.Save([]btree.Posting{{Key: common.StringValue("a"), ID: "1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cols, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cols) != 1 || cols[0] != "email" {
		t.Fatalf("got %v, want [email]", cols)
	}
}
