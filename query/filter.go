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
	"github.com/typedstore/typedstore/index/btree"
	"github.com/typedstore/typedstore/queryast"
	"github.com/typedstore/typedstore/schema"
	"github.com/typedstore/typedstore/table"
)

// filter evaluates where against t, preferring an existing or
// adaptively-created B-tree index over a full scan when the predicate,
// or one leaf conjunct of a top-level conjunction, is a comparison on an
// indexed-eligible column, per the adaptive-index design decision in
// index/manager.
func (e *Executor) filter(ctx context.Context, ot *schema.ObjectType, t *table.Table, where *queryast.WhereClause) ([]common.ID, []table.Row, error) {
	if where == nil {
		return scanAll(ctx, t)
	}

	if ids, ok, err := e.tryIndexedPredicate(ot, t, where); err != nil {
		return nil, nil, err
	} else if ok {
		rows := make([]table.Row, 0, len(ids))
		matched := make([]common.ID, 0, len(ids))
		for _, id := range ids {
			row, exists, err := t.Find(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			if !exists {
				continue
			}
			matched = append(matched, id)
			rows = append(rows, row)
		}
		if where.Predicate != nil {
			return matched, rows, nil
		}
		// a Conjunction: the indexed leaf only narrowed the candidate
		// set down from a full scan, the clause's other conjuncts still
		// need to be checked against it.
		return filterRows(ot, matched, rows, where)
	}

	ids, rows, err := scanAll(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	return filterRows(ot, ids, rows, where)
}

func scanAll(ctx context.Context, t *table.Table) ([]common.ID, []table.Row, error) {
	return t.ScanAll(ctx)
}

// tryIndexedPredicate recognizes an indexed leaf equals/range predicate
// and resolves it via the B-tree directly, recording the access so
// repeated filtering on an unindexed column eventually earns one (see
// manager.Manager.RecordAccess). The predicate may be where's sole
// top-level node, or one leaf conjunct of a top-level Conjunction — per
// the spec's "prefer the most selective equality predicate on an
// indexed column" guidance for compound where clauses.
func (e *Executor) tryIndexedPredicate(ot *schema.ObjectType, t *table.Table, where *queryast.WhereClause) ([]common.ID, bool, error) {
	switch {
	case where.Predicate != nil:
		return e.tryIndexedLeaf(ot, t, where.Predicate)
	case where.Conjunction != nil:
		return e.tryIndexedConjunction(ot, t, where.Conjunction)
	default:
		return nil, false, nil
	}
}

// tryIndexedConjunction walks a top-level Conjunction's direct leaf
// predicates (nested Conjunction/Disjunction sub-clauses are left to the
// in-memory evaluator) looking for one to serve from a B-tree. Every
// eligible leaf's column access is recorded via tryIndexedLeaf even when
// that leaf isn't the one ultimately chosen, so a column that is only
// ever filtered as part of a compound where clause can still adaptively
// earn an index over repeated queries. Among leaves an index can serve,
// an equality predicate is preferred as the most selective.
func (e *Executor) tryIndexedConjunction(ot *schema.ObjectType, t *table.Table, conjuncts []queryast.WhereClause) ([]common.ID, bool, error) {
	var bestIDs []common.ID
	haveBest := false
	bestIsEquality := false
	for _, sub := range conjuncts {
		if sub.Predicate == nil {
			continue
		}
		ids, ok, err := e.tryIndexedLeaf(ot, t, sub.Predicate)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		isEquality := sub.Predicate.Op == queryast.OpEquals
		if !haveBest || (isEquality && !bestIsEquality) {
			bestIDs, haveBest, bestIsEquality = ids, true, isEquality
		}
	}
	return bestIDs, haveBest, nil
}

// tryIndexedLeaf is the single-predicate case: a leaf column/op/value
// comparison tested directly against an existing or freshly-adaptively-
// created B-tree index.
func (e *Executor) tryIndexedLeaf(ot *schema.ObjectType, t *table.Table, pred *queryast.Predicate) ([]common.ID, bool, error) {
	desc, exists := ot.Descriptors[pred.Column]
	if !exists {
		return nil, false, &common.QueryError{Message: fmt.Sprintf("unknown column %q", pred.Column), Path: "where"}
	}
	if pred.Op == queryast.OpContains || desc.IsList {
		return nil, false, nil
	}

	indexes := t.Indexes()
	indexes.RecordAccess(pred.Column, func(tree *btree.Tree) {
		ids, rows, err := t.ScanAll(context.Background())
		if err != nil {
			return
		}
		for i, row := range rows {
			if desc.ColumnIndex >= len(row) || row[desc.ColumnIndex].Null {
				continue
			}
			tree.Insert(row[desc.ColumnIndex], ids[i])
		}
	})

	tree, exists := indexes.Tree(pred.Column)
	if !exists {
		return nil, false, nil
	}

	switch pred.Op {
	case queryast.OpEquals:
		return tree.Find(pred.Value), true, nil
	case queryast.OpGte:
		ids := tree.FindGreaterThan(pred.Value)
		return append(tree.Find(pred.Value), ids...), true, nil
	case queryast.OpGt:
		return tree.FindGreaterThan(pred.Value), true, nil
	case queryast.OpLte:
		ids := tree.FindLessThan(pred.Value)
		return append(ids, tree.Find(pred.Value)...), true, nil
	case queryast.OpLt:
		return tree.FindLessThan(pred.Value), true, nil
	default:
		return nil, false, nil
	}
}

// filterRows applies where as an in-memory predicate evaluation over an
// already-fetched row set: the full scan when no index can serve the
// predicate, or the candidates an indexed leaf narrowed a conjunction
// down to, whose remaining conjuncts still need checking.
func filterRows(ot *schema.ObjectType, ids []common.ID, rows []table.Row, where *queryast.WhereClause) ([]common.ID, []table.Row, error) {
	var outIDs []common.ID
	var outRows []table.Row
	for i, row := range rows {
		ok, err := evaluate(ot, row, where)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			outIDs = append(outIDs, ids[i])
			outRows = append(outRows, row)
		}
	}
	return outIDs, outRows, nil
}

func evaluate(ot *schema.ObjectType, row table.Row, where *queryast.WhereClause) (bool, error) {
	switch {
	case where.Predicate != nil:
		return evaluatePredicate(ot, row, where.Predicate)
	case where.Conjunction != nil:
		for _, sub := range where.Conjunction {
			ok, err := evaluate(ot, row, &sub)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case where.Disjunction != nil:
		for _, sub := range where.Disjunction {
			ok, err := evaluate(ot, row, &sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return true, nil
	}
}

func evaluatePredicate(ot *schema.ObjectType, row table.Row, pred *queryast.Predicate) (bool, error) {
	desc, exists := ot.Descriptors[pred.Column]
	if !exists {
		return false, &common.QueryError{Message: fmt.Sprintf("unknown column %q", pred.Column), Path: "where"}
	}
	if desc.ColumnIndex >= len(row) {
		return false, nil
	}
	value := row[desc.ColumnIndex]
	if value.Null {
		return false, nil
	}

	if pred.Op == queryast.OpContains {
		if !value.IsList {
			return false, &common.QueryError{Message: fmt.Sprintf("contains on non-list column %q", pred.Column), Path: "where"}
		}
		for _, item := range value.List() {
			if item.Compare(pred.Value) == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	if value.IsList {
		return false, &common.QueryError{Message: fmt.Sprintf("operator %q not supported on list column %q", pred.Op, pred.Column), Path: "where"}
	}

	c := value.Compare(pred.Value)
	switch pred.Op {
	case queryast.OpEquals:
		return c == 0, nil
	case queryast.OpGte:
		return c >= 0, nil
	case queryast.OpLte:
		return c <= 0, nil
	case queryast.OpGt:
		return c > 0, nil
	case queryast.OpLt:
		return c < 0, nil
	default:
		return false, &common.QueryError{Message: fmt.Sprintf("unsupported operator %q", pred.Op), Path: "where"}
	}
}
