// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package query

import (
	"context"
	"fmt"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/common/interrupt"
	"github.com/typedstore/typedstore/queryast"
	"github.com/typedstore/typedstore/schema"
	"github.com/typedstore/typedstore/table"
)

// project turns a matched (ids, rows) set into response rows per sel.
// Relationship fields are resolved once per distinct referenced id
// across the whole row set, rather than once per row, per the batched
// relationship-resolution design: a list of 1000 rows referencing 20
// distinct authors issues 20 lookups, not 1000.
func (e *Executor) project(ctx context.Context, ot *schema.ObjectType, ids []common.ID, rows []table.Row, sel []queryast.Selection) ([]Row, []error) {
	scalarSel, relSel := splitSelections(ot, sel)

	out := make([]Row, len(rows))
	var errs []error
	for i, row := range rows {
		r := make(Row, len(sel))
		for _, s := range scalarSel {
			d := ot.Descriptors[s.Field]
			if d.ColumnIndex < len(row) {
				r[s.ResponseKey()] = row[d.ColumnIndex]
			}
		}
		out[i] = r
	}

	for _, rs := range relSel {
		if interrupt.IsCancelled(ctx) {
			errs = append(errs, common.ErrCancelled)
			break
		}
		errs = append(errs, e.resolveRelationship(ctx, ot, ids, rows, out, rs)...)
	}

	return out, errs
}

// splitSelections partitions sel into plain scalar-column selections
// and relationship (foreign-key) selections, per each field's compiled
// descriptor.
func splitSelections(ot *schema.ObjectType, sel []queryast.Selection) (scalar, relationship []queryast.Selection) {
	for _, s := range sel {
		d, exists := ot.Descriptors[s.Field]
		if exists && d.IsForeignKey {
			relationship = append(relationship, s)
			continue
		}
		scalar = append(scalar, s)
	}
	return scalar, relationship
}

// resolveRelationship batch-loads the related table for rs across every
// row, fetching each distinct related id exactly once, then assigns the
// resolved value (a single Row, or []Row for a to-many relation) back
// into out in place. A foreign key that does not resolve in the related
// table (a dangling reference, e.g. to a record deleted out from under
// it) leaves the field null/omitted and appends one error per dangling
// id to the returned slice, rather than failing the whole relationship.
func (e *Executor) resolveRelationship(ctx context.Context, ot *schema.ObjectType, ids []common.ID, rows []table.Row, out []Row, rs queryast.Selection) []error {
	desc, exists := ot.Descriptors[rs.Field]
	if !exists {
		return []error{&common.QueryError{Message: fmt.Sprintf("unknown relationship field %q", rs.Field), Path: rs.Field}}
	}
	relatedOT, relatedTable, err := e.resolveType(desc.RelatedType)
	if err != nil {
		return []error{err}
	}

	distinct := make(map[common.ID]bool)
	for _, row := range rows {
		if desc.ColumnIndex >= len(row) || row[desc.ColumnIndex].Null {
			continue
		}
		for _, fk := range foreignKeyIDs(row[desc.ColumnIndex], desc.IsList) {
			distinct[fk] = true
		}
	}

	var errs []error
	fetched := make(map[common.ID]table.Row, len(distinct))
	fetchedIDs := make([]common.ID, 0, len(distinct))
	for fk := range distinct {
		row, exists, err := relatedTable.Find(ctx, fk)
		if err != nil {
			return append(errs, err)
		}
		if exists {
			fetched[fk] = row
			fetchedIDs = append(fetchedIDs, fk)
			continue
		}
		errs = append(errs, &common.QueryError{
			Message: fmt.Sprintf("%s: no %s record for id %q", rs.Field, desc.RelatedType, fk),
			Path:    rs.Field,
		})
	}

	projectedByID := make(map[common.ID]Row, len(fetched))
	if len(fetchedIDs) > 0 {
		fetchedRows := make([]table.Row, len(fetchedIDs))
		for i, fk := range fetchedIDs {
			fetchedRows[i] = fetched[fk]
		}
		projected, subErrs := e.project(ctx, relatedOT, fetchedIDs, fetchedRows, rs.SubSelection)
		errs = append(errs, subErrs...)
		for i, fk := range fetchedIDs {
			projectedByID[fk] = projected[i]
		}
	}

	key := rs.ResponseKey()
	for i, row := range rows {
		if desc.ColumnIndex >= len(row) || row[desc.ColumnIndex].Null {
			if desc.IsList {
				out[i][key] = []Row{}
			}
			continue
		}
		fkIDs := foreignKeyIDs(row[desc.ColumnIndex], desc.IsList)
		if desc.IsList {
			related := make([]Row, 0, len(fkIDs))
			for _, fk := range fkIDs {
				if r, ok := projectedByID[fk]; ok {
					related = append(related, r)
				}
			}
			out[i][key] = related
			continue
		}
		if len(fkIDs) == 0 {
			continue
		}
		if r, ok := projectedByID[fkIDs[0]]; ok {
			out[i][key] = r
		}
	}

	return errs
}

func foreignKeyIDs(v common.ScalarValue, isList bool) []common.ID {
	if !isList {
		return []common.ID{v.ID()}
	}
	items := v.List()
	ids := make([]common.ID, len(items))
	for i, item := range items {
		ids[i] = item.ID()
	}
	return ids
}
