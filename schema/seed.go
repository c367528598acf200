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
	"encoding/json"
	"fmt"
	"time"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/common/jsonfile"
	"github.com/typedstore/typedstore/table"
)

// LoadSeedResult reports every violation encountered while loading a
// seed document (each offending record is skipped, loading continues)
// and the number of records loaded, nested records included.
type LoadSeedResult struct {
	Violations []common.SchemaViolation
	Loaded     int
}

// LoadSeedFile reads a JSON seed document from path and loads it,
// grounded on backend/utils/json_file_io.go's ReadJsonFile helper,
// adapted to decode per-type record arrays lazily so one malformed
// record does not abort the whole document.
func (c *Catalog) LoadSeedFile(ctx context.Context, path string) (LoadSeedResult, error) {
	doc, err := jsonfile.ReadJsonFile[map[string]json.RawMessage](path)
	if err != nil {
		return LoadSeedResult{}, fmt.Errorf("%w: reading seed file %s: %s", common.ErrIoError, path, err)
	}
	return c.loadSeedDocument(ctx, doc)
}

// LoadSeed loads a JSON seed document of shape
// { "<TypeName>": [ { "id": "...", "<field>": <value>, ... }, ... ] }.
// Foreign-key fields may appear as explicit <field>Id/<field>Ids
// columns or as nested sub-objects, which are recursively routed to
// their own table.
func (c *Catalog) LoadSeed(ctx context.Context, data []byte) (LoadSeedResult, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return LoadSeedResult{}, fmt.Errorf("%w: malformed seed document: %s", common.ErrIoError, err)
	}
	return c.loadSeedDocument(ctx, doc)
}

func (c *Catalog) loadSeedDocument(ctx context.Context, doc map[string]json.RawMessage) (LoadSeedResult, error) {
	var result LoadSeedResult
	for typeName, rawRecords := range doc {
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(rawRecords, &records); err != nil {
			return LoadSeedResult{}, fmt.Errorf("%w: type %q is not a record array: %s", common.ErrIoError, typeName, err)
		}
		for _, record := range records {
			if v := c.loadRecord(ctx, typeName, record, &result.Loaded); v != nil {
				result.Violations = append(result.Violations, *v)
			}
		}
	}
	return result, nil
}

func (c *Catalog) loadRecord(ctx context.Context, typeName string, record map[string]json.RawMessage, loaded *int) *common.SchemaViolation {
	ot, exists := c.Type(typeName)
	if !exists {
		return &common.SchemaViolation{Type: typeName, Field: "<type>"}
	}
	t, exists := c.Table(typeName)
	if !exists {
		return &common.SchemaViolation{Type: typeName, Field: "<type>"}
	}

	rawID, exists := record["id"]
	if !exists {
		return &common.SchemaViolation{Type: typeName, Field: "id"}
	}
	var idStr string
	if err := json.Unmarshal(rawID, &idStr); err != nil || idStr == "" {
		return &common.SchemaViolation{Type: typeName, Field: "id"}
	}
	id := common.ID(idStr)

	row := make(table.Row, len(ot.Columns))
	for i, col := range ot.Columns {
		if col.Name == "id" {
			row[i] = common.IDValue(id)
			continue
		}

		raw, present := record[col.Name]
		if !present {
			if nested, violation := c.extractNestedForeignKey(ctx, ot, col, record, loaded); violation != nil {
				return violation
			} else if nested != nil {
				row[i] = *nested
				continue
			}
			if !col.Nullable {
				return &common.SchemaViolation{Type: typeName, Key: idStr, Field: col.Name}
			}
			row[i] = common.NullValue(col.Kind)
			continue
		}

		value, err := decodeScalarJSON(col, raw)
		if err != nil {
			return &common.SchemaViolation{Type: typeName, Key: idStr, Field: col.Name}
		}
		row[i] = value
	}

	if err := t.Insert(ctx, id, row); err != nil {
		return &common.SchemaViolation{Type: typeName, Key: idStr, Field: "id"}
	}
	*loaded++
	return nil
}

// extractNestedForeignKey looks for a nested sub-object under the
// field name a foreign-key column was derived from (stripping the
// "Id"/"Ids" suffix), loads it recursively into its own table, and
// returns the extracted id(s) as this column's value.
func (c *Catalog) extractNestedForeignKey(ctx context.Context, ot *ObjectType, col common.Column, record map[string]json.RawMessage, loaded *int) (*common.ScalarValue, *common.SchemaViolation) {
	if !col.IsForeignKey {
		return nil, nil
	}
	fieldName := col.Name
	if col.IsList {
		fieldName = fieldName[:len(fieldName)-len("Ids")]
	} else {
		fieldName = fieldName[:len(fieldName)-len("Id")]
	}
	raw, present := record[fieldName]
	if !present {
		return nil, nil
	}

	if col.IsList {
		var nested []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, &common.SchemaViolation{Type: ot.Name, Field: fieldName}
		}
		ids := make([]common.ScalarValue, 0, len(nested))
		for _, sub := range nested {
			if v := c.loadRecord(ctx, col.RelatedType, sub, loaded); v != nil {
				return nil, v
			}
			var idStr string
			_ = json.Unmarshal(sub["id"], &idStr)
			ids = append(ids, common.IDValue(common.ID(idStr)))
		}
		value := common.ListValue(common.KindID, ids)
		return &value, nil
	}

	var sub map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, &common.SchemaViolation{Type: ot.Name, Field: fieldName}
	}
	if v := c.loadRecord(ctx, col.RelatedType, sub, loaded); v != nil {
		return nil, v
	}
	var idStr string
	_ = json.Unmarshal(sub["id"], &idStr)
	value := common.IDValue(common.ID(idStr))
	return &value, nil
}

func decodeScalarJSON(col common.Column, raw json.RawMessage) (common.ScalarValue, error) {
	if string(raw) == "null" {
		if !col.Nullable {
			return common.ScalarValue{}, fmt.Errorf("null value for non-nullable column %q", col.Name)
		}
		return common.NullValue(col.Kind), nil
	}

	if col.IsList {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return common.ScalarValue{}, err
		}
		values := make([]common.ScalarValue, len(items))
		for i, item := range items {
			v, err := decodeScalar(col.Kind, item)
			if err != nil {
				return common.ScalarValue{}, err
			}
			values[i] = v
		}
		return common.ListValue(col.Kind, values), nil
	}

	return decodeScalar(col.Kind, raw)
}

func decodeScalar(kind common.ScalarKind, raw json.RawMessage) (common.ScalarValue, error) {
	switch kind {
	case common.KindID:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return common.ScalarValue{}, err
		}
		return common.IDValue(common.ID(s)), nil
	case common.KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return common.ScalarValue{}, err
		}
		return common.StringValue(s), nil
	case common.KindInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return common.ScalarValue{}, err
		}
		return common.IntValue(n), nil
	case common.KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return common.ScalarValue{}, err
		}
		return common.FloatValue(f), nil
	case common.KindBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return common.ScalarValue{}, err
		}
		return common.BoolValue(b), nil
	case common.KindDateTime:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return common.ScalarValue{}, err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return common.ScalarValue{}, err
		}
		return common.DateTimeValue(parsed), nil
	default:
		return common.ScalarValue{}, fmt.Errorf("unsupported scalar kind %v", kind)
	}
}
