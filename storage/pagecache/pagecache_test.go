// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pagecache

import (
	"testing"

	"github.com/typedstore/typedstore/storage/pagefile"
)

type stubSource struct {
	managers map[string]*pagefile.Manager
}

func (s *stubSource) Manager(table string) (*pagefile.Manager, bool) {
	m, ok := s.managers[table]
	return m, ok
}

func newStubSource(t *testing.T, names ...string) *stubSource {
	t.Helper()
	s := &stubSource{managers: make(map[string]*pagefile.Manager)}
	for _, name := range names {
		m, err := pagefile.Open(t.TempDir(), name)
		if err != nil {
			t.Fatalf("pagefile.Open(%q) failed: %v", name, err)
		}
		t.Cleanup(func() { m.Close() })
		s.managers[name] = m
	}
	return s
}

func TestCache_GetMissLoadsFromSource(t *testing.T) {
	src := newStubSource(t, "users")
	c := New(4, src)

	p, err := c.Get("users", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.ReadOnlyBytes()[0] != 0 {
		t.Fatal("a never-written page should read back as zero")
	}
}

func TestCache_PutThenGetReturnsSamePage(t *testing.T) {
	src := newStubSource(t, "users")
	c := New(4, src)

	p, err := c.Get("users", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	p.Bytes()[0] = 7
	if err := c.Put("users", 1, p); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get("users", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ReadOnlyBytes()[0] != 7 {
		t.Fatalf("got %d, want 7", got.ReadOnlyBytes()[0])
	}
}

func TestCache_FlushWritesBackOnlyNamedTable(t *testing.T) {
	src := newStubSource(t, "users", "posts")
	c := New(4, src)

	up, _ := c.Get("users", 1)
	up.Bytes()[0] = 1
	c.Put("users", 1, up)

	pp, _ := c.Get("posts", 1)
	pp.Bytes()[0] = 2
	c.Put("posts", 1, pp)

	if err := c.Flush("users"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	mgr, _ := src.Manager("users")
	count, err := mgr.PageCount()
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	if count == 0 {
		t.Fatal("expected Flush(\"users\") to have written back the users page")
	}

	postsMgr, _ := src.Manager("posts")
	postsCount, err := postsMgr.PageCount()
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	if postsCount != 0 {
		t.Fatal("expected Flush(\"users\") to leave the dirty posts page unwritten")
	}
}

func TestCache_EvictDropsTablePages(t *testing.T) {
	src := newStubSource(t, "users")
	c := New(4, src)

	c.Get("users", 1)
	c.Evict("users")

	// after eviction the cache must reload from the source rather than
	// error, since the source manager itself is untouched.
	if _, err := c.Get("users", 1); err != nil {
		t.Fatalf("Get after Evict failed: %v", err)
	}
}

func TestCache_EvictionWritesBackDirtyPages(t *testing.T) {
	src := newStubSource(t, "users")
	c := New(1, src)

	p1, _ := c.Get("users", 1)
	p1.Bytes()[0] = 1
	c.Put("users", 1, p1)

	// capacity is 1, so fetching page 2 evicts page 1 and must write it
	// back since it was dirty.
	if _, err := c.Get("users", 2); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	mgr, _ := src.Manager("users")
	count, err := mgr.PageCount()
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	if count < 1 {
		t.Fatal("expected eviction of a dirty page to have written it back")
	}
}
