// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

// Column is one table column's definition, shared by the schema
// catalog, the table package and the index manager so none of them
// need to import one another just to describe a column.
type Column struct {
	Name         string
	Kind         ScalarKind
	Nullable     bool
	IsList       bool
	IsForeignKey bool
	RelatedType  string
}

// FieldDescriptor is a compiled, schema-bound field lookup: field name
// -> (column index, scalar kind, is-foreign-key, related type). It
// replaces reflection-based field access in the executor, built once
// when a schema is bound rather than recomputed per record.
type FieldDescriptor struct {
	ColumnIndex  int
	Kind         ScalarKind
	Nullable     bool
	IsList       bool
	IsForeignKey bool
	RelatedType  string
}
