// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package schema binds an idl.Document to a set of open tables: one
// table per object type, with compiled field descriptors so the query
// executor never needs reflection to map a selection's field name to a
// column.
package schema

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/idl"
	"github.com/typedstore/typedstore/index/btree/filesidecar"
	"github.com/typedstore/typedstore/index/btree/ldbsidecar"
	"github.com/typedstore/typedstore/index/manager"
	"github.com/typedstore/typedstore/storage/pagecache"
	"github.com/typedstore/typedstore/storage/pagefile"
	"github.com/typedstore/typedstore/table"
)

// ObjectType is a bound type: its declared fields plus the compiled
// field descriptors the executor uses for column lookups.
type ObjectType struct {
	Name        string
	Columns     []common.Column
	Descriptors map[string]common.FieldDescriptor
}

// Options configures catalog-wide defaults, including the Open
// Question decisions the spec leaves to the implementation.
type Options struct {
	PageCacheCapacity    int
	FlushThresholdBytes  int
	BTreeOrder           int
	AccessThreshold      int
	IndexSidecarBackend  SidecarBackend
	Logger               *common.Logger
}

// SidecarBackend selects which B-tree index persistence backend new
// indexes use.
type SidecarBackend int

const (
	FileSidecarBackend SidecarBackend = iota
	LevelDBSidecarBackend
)

// Catalog is the schema-bound, open-table view of a database directory.
type Catalog struct {
	dir   string
	opts  Options
	cache *pagecache.Cache

	types  map[string]*ObjectType
	tables map[string]*table.Table
}

// Bind parses doc's object types into columns (deriving foreign-key
// columns per the field-to-column naming rule) and opens one table per
// type under dir.
func Bind(dir string, doc idl.Document, opts Options) (*Catalog, error) {
	if opts.PageCacheCapacity == 0 {
		opts.PageCacheCapacity = pagecache.DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = common.Default
	}

	c := &Catalog{
		dir:    dir,
		opts:   opts,
		types:  make(map[string]*ObjectType),
		tables: make(map[string]*table.Table),
	}
	c.cache = pagecache.New(opts.PageCacheCapacity, c)

	for _, ot := range doc.Types {
		bound, err := bindType(ot)
		if err != nil {
			return nil, err
		}
		c.types[ot.Name] = bound
	}

	for _, ot := range doc.Types {
		store, err := newSidecarStore(opts.IndexSidecarBackend, c.IndexDir(ot.Name))
		if err != nil {
			return nil, fmt.Errorf("opening index sidecar store for %q: %w", ot.Name, err)
		}
		t, err := table.Open(dir, ot.Name, c.types[ot.Name].Columns, c.cache, table.Options{
			FlushThresholdBytes: opts.FlushThresholdBytes,
			BTreeOrder:          opts.BTreeOrder,
			AccessThreshold:     opts.AccessThreshold,
			Logger:              opts.Logger,
			IndexSidecars:       store,
		})
		if err != nil {
			return nil, fmt.Errorf("opening table %q: %w", ot.Name, err)
		}
		c.tables[ot.Name] = t
	}

	return c, nil
}

// newSidecarStore opens the configured B-tree index persistence backend
// for one table's <table>_indexes directory.
func newSidecarStore(backend SidecarBackend, indexDir string) (manager.SidecarStore, error) {
	if backend == LevelDBSidecarBackend {
		return ldbsidecar.NewStore(indexDir)
	}
	return filesidecar.NewStore(indexDir)
}

// Manager satisfies pagecache.Source across every table in the
// catalog, so a single shared page cache can serve all of them by
// delegating to the table that owns the requested name.
func (c *Catalog) Manager(name string) (*pagefile.Manager, bool) {
	t, ok := c.tables[name]
	if !ok {
		return nil, false
	}
	return t.Manager(name)
}

func bindType(ot idl.ObjectType) (*ObjectType, error) {
	columns := []common.Column{{Name: "id", Kind: common.KindID, Nullable: false}}
	descriptors := map[string]common.FieldDescriptor{
		"id": {ColumnIndex: 0, Kind: common.KindID, Nullable: false},
	}

	for _, f := range ot.Fields {
		if f.Name == "id" {
			continue
		}
		col, err := columnForField(f)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", ot.Name, err)
		}
		idx := len(columns)
		columns = append(columns, col)
		descriptors[f.Name] = common.FieldDescriptor{
			ColumnIndex:  idx,
			Kind:         col.Kind,
			Nullable:     col.Nullable,
			IsList:       col.IsList,
			IsForeignKey: col.IsForeignKey,
			RelatedType:  col.RelatedType,
		}
	}

	return &ObjectType{Name: ot.Name, Columns: columns, Descriptors: descriptors}, nil
}

func columnForField(f idl.Field) (common.Column, error) {
	if f.IsReference {
		if f.IsList {
			return common.Column{
				Name: f.Name + "Ids", Kind: common.KindID, Nullable: !f.NonNull,
				IsList: true, IsForeignKey: true, RelatedType: f.TypeRef,
			}, nil
		}
		return common.Column{
			Name: f.Name + "Id", Kind: common.KindID, Nullable: !f.NonNull,
			IsForeignKey: true, RelatedType: f.TypeRef,
		}, nil
	}

	kind, err := scalarKindFor(f.TypeRef)
	if err != nil {
		return common.Column{}, err
	}
	return common.Column{Name: f.Name, Kind: kind, Nullable: !f.NonNull, IsList: f.IsList}, nil
}

func scalarKindFor(typeRef string) (common.ScalarKind, error) {
	switch typeRef {
	case "Id":
		return common.KindID, nil
	case "String":
		return common.KindString, nil
	case "Int":
		return common.KindInt, nil
	case "Float":
		return common.KindFloat, nil
	case "Boolean":
		return common.KindBoolean, nil
	case "DateTime":
		return common.KindDateTime, nil
	default:
		return 0, &common.SchemaViolation{Type: typeRef, Field: "typeRef"}
	}
}

// Type returns the bound ObjectType for name.
func (c *Catalog) Type(name string) (*ObjectType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Table returns the open table backing type name.
func (c *Catalog) Table(name string) (*table.Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Types returns every bound type name.
func (c *Catalog) Types() []string {
	names := make([]string, 0, len(c.types))
	for n := range c.types {
		names = append(names, n)
	}
	return names
}

// IndexDir is where column B-tree sidecars for table are stored, per
// the spec's <db>/<table>_indexes/<column>.idx layout.
func (c *Catalog) IndexDir(tableName string) string {
	return filepath.Join(c.dir, tableName+"_indexes")
}

// Close flushes and closes every open table.
func (c *Catalog) Close() error {
	var firstErr error
	ctx := context.Background()
	for _, t := range c.tables {
		if err := t.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
