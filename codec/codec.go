// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package codec encodes and decodes the binary payloads written to
// table data pages and index sidecars. It uses go-ethereum's rlp
// encoding, a direct dependency of this module's teacher lineage,
// instead of a hand-rolled binary format: rlp already gives
// self-describing, length-prefixed encoding of nested lists and byte
// strings, which is exactly the shape a page full of variable-width
// rows needs.
package codec

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/typedstore/typedstore/common"
)

// WireScalar is the RLP-representable form of a common.ScalarValue.
// ScalarValue keeps its fields unexported to present a tagged-union API,
// so this is the exported shape rlp actually encodes; ToWire/FromWire
// convert between the two.
type WireScalar struct {
	Kind    uint8
	Null    bool
	IsList  bool
	Str     string
	Int     int64
	Float   uint64 // math.Float64bits, rlp has no native float support
	Bool    bool
	Millis  int64
	List    []WireScalar
}

// ToWire converts a ScalarValue to its RLP-representable form.
func ToWire(v common.ScalarValue) WireScalar {
	w := WireScalar{Kind: uint8(v.Kind), Null: v.Null, IsList: v.IsList}
	if v.Null {
		return w
	}
	if v.IsList {
		for _, item := range v.List() {
			w.List = append(w.List, ToWire(item))
		}
		return w
	}
	switch v.Kind {
	case common.KindID:
		w.Str = string(v.ID())
	case common.KindString:
		w.Str = v.Str()
	case common.KindInt:
		w.Int = v.Int()
	case common.KindFloat:
		w.Float = floatBits(v.Float())
	case common.KindBoolean:
		w.Bool = v.Bool()
	case common.KindDateTime:
		w.Millis = v.Time().UnixMilli()
	}
	return w
}

// FromWire reconstructs a ScalarValue from its RLP-decoded form.
func FromWire(w WireScalar) common.ScalarValue {
	kind := common.ScalarKind(w.Kind)
	if w.Null {
		return common.NullValue(kind)
	}
	if w.IsList {
		items := make([]common.ScalarValue, len(w.List))
		for i, item := range w.List {
			items[i] = FromWire(item)
		}
		return common.ListValue(kind, items)
	}
	switch kind {
	case common.KindID:
		return common.IDValue(common.ID(w.Str))
	case common.KindString:
		return common.StringValue(w.Str)
	case common.KindInt:
		return common.IntValue(w.Int)
	case common.KindFloat:
		return common.FloatValue(floatFromBits(w.Float))
	case common.KindBoolean:
		return common.BoolValue(w.Bool)
	case common.KindDateTime:
		return common.DateTimeValue(time.UnixMilli(w.Millis).UTC())
	default:
		return common.NullValue(kind)
	}
}

// WireRow is one record's positional column values, RLP-encodable.
type WireRow struct {
	Columns []WireScalar
}

// EncodeRows serializes a batch of rows, each identified by its primary
// key, as written to a table data page.
func EncodeRows(ids []common.ID, rows [][]common.ScalarValue) ([]byte, error) {
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("codec: ids/rows length mismatch: %d != %d", len(ids), len(rows))
	}
	wire := make([]struct {
		ID  string
		Row WireRow
	}, len(rows))
	for i, row := range rows {
		wr := WireRow{Columns: make([]WireScalar, len(row))}
		for j, v := range row {
			wr.Columns[j] = ToWire(v)
		}
		wire[i] = struct {
			ID  string
			Row WireRow
		}{ID: string(ids[i]), Row: wr}
	}
	return rlp.EncodeToBytes(wire)
}

// DecodeRows is the inverse of EncodeRows.
func DecodeRows(data []byte) ([]common.ID, [][]common.ScalarValue, error) {
	var wire []struct {
		ID  string
		Row WireRow
	}
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("codec: failed to decode record group: %w", err)
	}
	ids := make([]common.ID, len(wire))
	rows := make([][]common.ScalarValue, len(wire))
	for i, entry := range wire {
		ids[i] = common.ID(entry.ID)
		row := make([]common.ScalarValue, len(entry.Row.Columns))
		for j, wv := range entry.Row.Columns {
			row[j] = FromWire(wv)
		}
		rows[i] = row
	}
	return ids, rows, nil
}

// WirePosting is one (key, id) pair of a B-tree index sidecar.
type WirePosting struct {
	Key WireScalar
	ID  string
}

// EncodePostings serializes an index sidecar's full posting list.
func EncodePostings(keys []common.ScalarValue, ids []common.ID) ([]byte, error) {
	if len(keys) != len(ids) {
		return nil, fmt.Errorf("codec: keys/ids length mismatch: %d != %d", len(keys), len(ids))
	}
	wire := make([]WirePosting, len(keys))
	for i := range keys {
		wire[i] = WirePosting{Key: ToWire(keys[i]), ID: string(ids[i])}
	}
	return rlp.EncodeToBytes(wire)
}

// DecodePostings is the inverse of EncodePostings.
func DecodePostings(data []byte) ([]common.ScalarValue, []common.ID, error) {
	var wire []WirePosting
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("codec: failed to decode index postings: %w", err)
	}
	keys := make([]common.ScalarValue, len(wire))
	ids := make([]common.ID, len(wire))
	for i, p := range wire {
		keys[i] = FromWire(p.Key)
		ids[i] = common.ID(p.ID)
	}
	return keys, ids, nil
}

// WireColumn is the RLP-representable form of a schema column
// definition, used to persist table metadata on page 0.
type WireColumn struct {
	Name         string
	Kind         uint8
	Nullable     bool
	IsList       bool
	IsForeignKey bool
	RelatedType  string
}

// WireMetadata is the full page-0 payload for one table.
type WireMetadata struct {
	TableName string
	Columns   []WireColumn
}

// EncodeMetadata serializes table metadata for page 0.
func EncodeMetadata(m WireMetadata) ([]byte, error) {
	return rlp.EncodeToBytes(m)
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(data []byte) (WireMetadata, error) {
	var m WireMetadata
	if err := rlp.DecodeBytes(data, &m); err != nil {
		return WireMetadata{}, fmt.Errorf("codec: failed to decode table metadata: %w", err)
	}
	return m, nil
}
