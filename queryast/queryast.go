// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package queryast defines the AST the query executor consumes from
// the query-language parser. Producing that AST from source text is
// out of scope for this module (see SPEC_FULL.md); this package only
// names the shape the executor expects to be handed.
package queryast

import "github.com/typedstore/typedstore/common"

// Op names a predicate comparison operator.
type Op string

const (
	OpEquals   Op = "equals"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpLt       Op = "lt"
	OpContains Op = "contains"
)

// Predicate is one leaf comparison: column <op> value.
type Predicate struct {
	Column string
	Op     Op
	Value  common.ScalarValue
}

// Conjunction combines sub-clauses with logical AND; Disjunction with
// logical OR. Exactly one of Predicate, Conjunction, Disjunction is set
// on a given WhereClause node.
type WhereClause struct {
	Predicate   *Predicate
	Conjunction []WhereClause
	Disjunction []WhereClause
}

// SortDirection is ascending or descending order for one OrderTerm.
type SortDirection string

const (
	Ascending  SortDirection = "ASC"
	Descending SortDirection = "DESC"
)

// OrderTerm is one column of a multi-column ORDER BY.
type OrderTerm struct {
	Column    string
	Direction SortDirection
}

// Arguments are the per-field arguments attached to a Selection.
type Arguments struct {
	Where   *WhereClause
	OrderBy []OrderTerm
	Take    *int
	Skip    *int
}

// Selection is one field in a selection set, optionally aliased, with
// its own arguments and nested selection set for relationship fields.
type Selection struct {
	Field        string
	Alias        string
	Args         Arguments
	SubSelection []Selection
}

// ResponseKey is the key this selection should be projected under in
// the result: the alias if set, otherwise the field name.
func (s Selection) ResponseKey() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Field
}
