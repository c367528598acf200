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

import "fmt"

// Sentinel errors, following the ConstError idiom used throughout this
// codebase (see const_error.go) rather than a package of typed error
// structs for the cases that carry no extra data.
const (
	ErrNotFound        = ConstError("record not found")
	ErrDuplicateKey    = ConstError("primary key already exists")
	ErrIndexCorrupt    = ConstError("index sidecar corrupt")
	ErrCancelled       = ConstError("operation cancelled")
	ErrIoError         = ConstError("storage i/o failure")
	ErrSchemaMismatch  = ConstError("persisted table metadata does not match the bound schema")
)

// SchemaViolation reports a record that does not conform to its
// table's schema: a missing required field, a reference to an unknown
// type, or a foreign key pointing at a nonexistent target.
type SchemaViolation struct {
	Type  string
	Key   string
	Field string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation: type=%s key=%s field=%s", e.Type, e.Key, e.Field)
}

// QueryError reports a malformed predicate, a type mismatch at a
// filter, or invalid pagination arguments.
type QueryError struct {
	Message string
	Path    string
}

func (e *QueryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("query error: %s", e.Message)
	}
	return fmt.Sprintf("query error at %s: %s", e.Path, e.Message)
}
