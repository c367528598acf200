// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package query implements the read path over a bound schema.Catalog:
// point reads, filtered/ordered/paginated lists, and relationship
// fields resolved in batches rather than one lookup per row. The
// executor takes no table locks itself: each table read (table.Find,
// table.ScanAll) holds only that table's read lock for the one call, so
// a query that touches several tables holds no lock across them.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/common/interrupt"
	"github.com/typedstore/typedstore/queryast"
	"github.com/typedstore/typedstore/schema"
	"github.com/typedstore/typedstore/table"
)

// Row is one projected result record: response key -> scalar value,
// nested Row, or []Row for a resolved relationship field.
type Row map[string]any

// Executor answers selections against a bound catalog.
type Executor struct {
	catalog *schema.Catalog
}

// NewExecutor binds an executor to catalog.
func NewExecutor(catalog *schema.Catalog) *Executor {
	return &Executor{catalog: catalog}
}

// FindByID resolves a single-record selection: the root type's row for
// id, projected per sel, with relationship sub-selections resolved.
func (e *Executor) FindByID(ctx context.Context, typeName string, id common.ID, sel []queryast.Selection) (Row, error) {
	if interrupt.IsCancelled(ctx) {
		return nil, common.ErrCancelled
	}
	ot, t, err := e.resolveType(typeName)
	if err != nil {
		return nil, err
	}
	row, exists, err := t.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, id)
	}
	projected, errs := e.project(ctx, ot, []common.ID{id}, []table.Row{row}, sel)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return projected[0], nil
}

// List resolves a multi-record selection: every live row of typeName
// matching args.Where, ordered and paginated per args, each row
// projected per sel. An error in filtering or ordering aborts the list
// with that single error; errors resolving relationship fields are
// collected and returned together with the projected rows.
func (e *Executor) List(ctx context.Context, typeName string, args queryast.Arguments, sel []queryast.Selection) ([]Row, []error) {
	if interrupt.IsCancelled(ctx) {
		return nil, []error{common.ErrCancelled}
	}
	ot, t, err := e.resolveType(typeName)
	if err != nil {
		return nil, []error{err}
	}

	ids, rows, err := e.filter(ctx, ot, t, args.Where)
	if err != nil {
		return nil, []error{err}
	}

	if interrupt.IsCancelled(ctx) {
		return nil, []error{common.ErrCancelled}
	}
	if err := sortRows(ot, ids, rows, args.OrderBy); err != nil {
		return nil, []error{err}
	}

	ids, rows = paginate(ids, rows, args.Take, args.Skip)

	if interrupt.IsCancelled(ctx) {
		return nil, []error{common.ErrCancelled}
	}
	return e.project(ctx, ot, ids, rows, sel)
}

func (e *Executor) resolveType(typeName string) (*schema.ObjectType, *table.Table, error) {
	ot, exists := e.catalog.Type(typeName)
	if !exists {
		return nil, nil, &common.QueryError{Message: fmt.Sprintf("unknown type %q", typeName)}
	}
	t, exists := e.catalog.Table(typeName)
	if !exists {
		return nil, nil, &common.QueryError{Message: fmt.Sprintf("no table open for type %q", typeName)}
	}
	return ot, t, nil
}

// paginate applies skip then take, per the spec's offset-pagination
// contract. Negative values count as zero, a skip past the end yields an
// empty result and a take past the end keeps every remaining row;
// neither is an error.
func paginate(ids []common.ID, rows []table.Row, take, skip *int) ([]common.ID, []table.Row) {
	if skip != nil {
		n := *skip
		if n < 0 {
			n = 0
		}
		if n > len(ids) {
			n = len(ids)
		}
		ids, rows = ids[n:], rows[n:]
	}
	if take != nil {
		n := *take
		if n < 0 {
			n = 0
		}
		if n < len(ids) {
			ids, rows = ids[:n], rows[:n]
		}
	}
	return ids, rows
}

func sortRows(ot *schema.ObjectType, ids []common.ID, rows []table.Row, orderBy []queryast.OrderTerm) error {
	if len(orderBy) == 0 {
		return nil
	}
	descs := make([]common.FieldDescriptor, len(orderBy))
	for i, term := range orderBy {
		d, exists := ot.Descriptors[term.Column]
		if !exists {
			return &common.QueryError{Message: fmt.Sprintf("unknown column %q", term.Column), Path: "orderBy"}
		}
		descs[i] = d
	}

	idx := make([]int, len(ids))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := rows[idx[a]], rows[idx[b]]
		for i, term := range orderBy {
			d := descs[i]
			c := ra[d.ColumnIndex].Compare(rb[d.ColumnIndex])
			if term.Direction == queryast.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	sortedIDs := make([]common.ID, len(ids))
	sortedRows := make([]table.Row, len(rows))
	for i, pos := range idx {
		sortedIDs[i] = ids[pos]
		sortedRows[i] = rows[pos]
	}
	copy(ids, sortedIDs)
	copy(rows, sortedRows)
	return nil
}
