// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package schema

import (
	"context"
	"testing"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/idl"
	"github.com/typedstore/typedstore/table"
)

func testDoc() idl.Document {
	return idl.Document{
		Types: []idl.ObjectType{
			{
				Name: "User",
				Fields: []idl.Field{
					{Name: "id", TypeRef: "Id", NonNull: true},
					{Name: "name", TypeRef: "String", NonNull: true},
					{Name: "bestFriend", TypeRef: "User", IsReference: true},
					{Name: "posts", TypeRef: "Post", IsReference: true, IsList: true},
				},
			},
			{
				Name: "Post",
				Fields: []idl.Field{
					{Name: "id", TypeRef: "Id", NonNull: true},
					{Name: "title", TypeRef: "String", NonNull: true},
					{Name: "authorId", TypeRef: "User", IsReference: true, NonNull: true},
				},
			},
		},
	}
}

func TestBind_DerivesForeignKeyColumns(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	user, ok := cat.Type("User")
	if !ok {
		t.Fatal("expected User type to be bound")
	}
	desc, ok := user.Descriptors["bestFriend"]
	if !ok {
		t.Fatal("expected a bestFriend descriptor for the bestFriendId column")
	}
	if desc.Kind != common.KindID || !desc.IsForeignKey || desc.RelatedType != "User" {
		t.Fatalf("got %+v", desc)
	}

	listDesc, ok := user.Descriptors["posts"]
	if !ok {
		t.Fatal("expected a posts descriptor for the postsIds column")
	}
	if !listDesc.IsList || !listDesc.IsForeignKey || listDesc.RelatedType != "Post" {
		t.Fatalf("got %+v", listDesc)
	}

	found := false
	for _, c := range user.Columns {
		if c.Name == "bestFriendId" && c.IsForeignKey && c.RelatedType == "User" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a bestFriendId foreign-key column on User, got %+v", user.Columns)
	}

	post, ok := cat.Type("Post")
	if !ok {
		t.Fatal("expected Post type to be bound")
	}
	// the authorId field name already ends in "Id", so the derived
	// column is named authorIdId by the reference-field naming rule.
	found = false
	for _, c := range post.Columns {
		if c.Name == "authorIdId" && c.IsForeignKey && c.RelatedType == "User" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an authorIdId foreign-key column on Post, got %+v", post.Columns)
	}
}

func TestBind_OpensOneTablePerType(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	for _, name := range []string{"User", "Post"} {
		if _, ok := cat.Table(name); !ok {
			t.Fatalf("expected a table for type %q", name)
		}
	}

	ctx := context.Background()
	userTable, _ := cat.Table("User")
	row := table.Row{common.IDValue("u1"), common.StringValue("alice"), common.NullValue(common.KindID), common.NullValue(common.KindID)}
	if err := userTable.Insert(ctx, "u1", row); err != nil {
		t.Fatalf("Insert into bound table failed: %v", err)
	}
	got, exists, err := userTable.Find(ctx, "u1")
	if err != nil || !exists {
		t.Fatalf("Find failed: exists=%v err=%v", exists, err)
	}
	if got[1].Str() != "alice" {
		t.Fatalf("got %+v", got)
	}
}

func TestBind_UnknownScalarKindFails(t *testing.T) {
	dir := t.TempDir()
	doc := idl.Document{
		Types: []idl.ObjectType{
			{Name: "Bad", Fields: []idl.Field{{Name: "x", TypeRef: "NotAType"}}},
		},
	}
	if _, err := Bind(dir, doc, Options{}); err == nil {
		t.Fatal("expected Bind to fail on an unknown scalar type reference")
	}
}

func TestBind_LevelDBSidecarBackend(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20, IndexSidecarBackend: LevelDBSidecarBackend})
	if err != nil {
		t.Fatalf("Bind with LevelDBSidecarBackend failed: %v", err)
	}
	if err := cat.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
