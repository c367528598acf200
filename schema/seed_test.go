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
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSeed_NestedForeignKeysRouteToOwnTables(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	seed := []byte(`{
		"User": [
			{
				"id": "u1",
				"name": "alice",
				"posts": [
					{"id": "p1", "title": "hello", "authorIdId": "u1"}
				]
			}
		]
	}`)

	ctx := context.Background()
	result, err := cat.LoadSeed(ctx, seed)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if len(result.Violations) != 0 {
		t.Fatalf("unexpected violations: %+v", result.Violations)
	}
	if result.Loaded != 2 {
		t.Fatalf("got Loaded=%d, want 2 (one User, one nested Post)", result.Loaded)
	}

	userTable, _ := cat.Table("User")
	row, exists, err := userTable.Find(ctx, "u1")
	if err != nil || !exists {
		t.Fatalf("Find(u1) failed: exists=%v err=%v", exists, err)
	}
	if row[1].Str() != "alice" {
		t.Fatalf("got %+v", row)
	}

	postTable, _ := cat.Table("Post")
	postRow, exists, err := postTable.Find(ctx, "p1")
	if err != nil || !exists {
		t.Fatalf("Find(p1) failed: exists=%v err=%v", exists, err)
	}
	if postRow[1].Str() != "hello" {
		t.Fatalf("got %+v", postRow)
	}
}

func TestLoadSeed_MissingIDIsAViolationNotAnError(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	seed := []byte(`{"User": [{"name": "no id here"}]}`)
	result, err := cat.LoadSeed(context.Background(), seed)
	if err != nil {
		t.Fatalf("LoadSeed should not hard-fail on a bad record: %v", err)
	}
	if result.Loaded != 0 || len(result.Violations) != 1 {
		t.Fatalf("got Loaded=%d violations=%+v", result.Loaded, result.Violations)
	}
	if result.Violations[0].Field != "id" {
		t.Fatalf("got %+v", result.Violations[0])
	}
}

func TestLoadSeed_UnknownTypeIsAViolation(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	seed := []byte(`{"NoSuchType": [{"id": "1"}]}`)
	result, err := cat.LoadSeed(context.Background(), seed)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Type != "NoSuchType" {
		t.Fatalf("got %+v", result.Violations)
	}
}

func TestLoadSeedFile_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	seedPath := filepath.Join(t.TempDir(), "seed.json")
	writeFile(t, seedPath, `{"User": [{"id": "u1", "name": "alice"}]}`)

	result, err := cat.LoadSeedFile(context.Background(), seedPath)
	if err != nil {
		t.Fatalf("LoadSeedFile failed: %v", err)
	}
	if result.Loaded != 1 || len(result.Violations) != 0 {
		t.Fatalf("got Loaded=%d violations=%+v", result.Loaded, result.Violations)
	}
}

func TestLoadSeed_NonNullableMissingFieldIsAViolation(t *testing.T) {
	dir := t.TempDir()
	cat, err := Bind(dir, testDoc(), Options{FlushThresholdBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer cat.Close()

	// name is NonNull on User and absent here.
	seed := []byte(`{"User": [{"id": "u1"}]}`)
	result, err := cat.LoadSeed(context.Background(), seed)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Field != "name" {
		t.Fatalf("got %+v", result.Violations)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing seed fixture failed: %v", err)
	}
}
