// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package idl defines the AST the schema catalog consumes from the IDL
// tokenizer/parser. Producing that AST from source text is out of
// scope for this module (see SPEC_FULL.md); this package only names the
// shape the catalog loader expects to be handed.
package idl

// ObjectType is one named type definition with an ordered list of
// fields, in declaration order.
type ObjectType struct {
	Name   string
	Fields []Field
}

// Field is one field of an ObjectType. TypeRef names either a scalar
// kind ("Id", "String", "Int", "Float", "Boolean", "DateTime") or
// another ObjectType's name, depending on IsReference.
type Field struct {
	Name        string
	TypeRef     string
	NonNull     bool
	IsList      bool
	IsReference bool
}

// Document is the full parsed IDL input: every object type it defines,
// in declaration order.
type Document struct {
	Types []ObjectType
}
