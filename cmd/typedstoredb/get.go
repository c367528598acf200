// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/typedstore/typedstore/common"
	"github.com/typedstore/typedstore/query"
	"github.com/typedstore/typedstore/queryast"
)

var (
	typeFlag = cli.StringFlag{Name: "type", Usage: "the bound type name", Required: true}
	idFlag   = cli.StringFlag{Name: "id", Usage: "the record id", Required: true}
)

var getCommand = cli.Command{
	Action: runGet,
	Name:   "get",
	Usage:  "prints one record by id, projecting every scalar column",
	Flags: []cli.Flag{
		&dbDirectoryFlag,
		&schemaFileFlag,
		&typeFlag,
		&idFlag,
	},
}

func runGet(ctx *cli.Context) (err error) {
	catalog, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := catalog.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	typeName := ctx.String(typeFlag.Name)
	ot, exists := catalog.Type(typeName)
	if !exists {
		return fmt.Errorf("unknown type %q", typeName)
	}

	sel := make([]queryast.Selection, 0, len(ot.Columns))
	for _, col := range ot.Columns {
		if col.IsForeignKey {
			continue
		}
		sel = append(sel, queryast.Selection{Field: col.Name})
	}

	executor := query.NewExecutor(catalog)
	row, err := executor.FindByID(context.Background(), typeName, common.ID(ctx.String(idFlag.Name)), sel)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(scalarize(row), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// scalarize renders a query.Row's common.ScalarValue leaves as plain
// Go values so json.Marshal produces readable output instead of
// dumping ScalarValue's internal layout.
func scalarize(row query.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if sv, ok := v.(common.ScalarValue); ok {
			out[k] = scalarizeValue(sv)
			continue
		}
		out[k] = v
	}
	return out
}

func scalarizeValue(v common.ScalarValue) any {
	if v.Null {
		return nil
	}
	if v.IsList {
		items := v.List()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = scalarizeValue(item)
		}
		return out
	}
	switch v.Kind {
	case common.KindID:
		return string(v.ID())
	case common.KindString:
		return v.Str()
	case common.KindInt:
		return v.Int()
	case common.KindFloat:
		return v.Float()
	case common.KindBoolean:
		return v.Bool()
	case common.KindDateTime:
		return v.Time()
	default:
		return nil
	}
}
