// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldbsidecar

import (
	"path/filepath"
	"testing"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/index/btree"
)

func TestSidecar_SaveLoadRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "email.ldb"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

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
		t.Fatalf("got %v, want the saved postings back in order", got)
	}
}

func TestSidecar_SaveReplacesPriorContents(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "email.ldb"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Save([]btree.Posting{{Key: common.StringValue("a"), ID: "1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save([]btree.Posting{{Key: common.StringValue("b"), ID: "2"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("got %v, want only the second Save's posting", got)
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
	if err := sc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cols, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cols) != 1 || cols[0] != "email" {
		t.Fatalf("got %v, want [email]", cols)
	}
}
