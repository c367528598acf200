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
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/typedstore/typedstore/common/jsonfile"
	"github.com/typedstore/typedstore/idl"
	"github.com/typedstore/typedstore/schema"
)

var (
	dbDirectoryFlag = cli.StringFlag{
		Name:     "dir",
		Usage:    "the targeted database directory",
		Required: true,
	}
	schemaFileFlag = cli.StringFlag{
		Name:     "schema",
		Usage:    "path to a JSON-encoded idl.Document describing the bound types",
		Required: true,
	}
)

// openCatalog reads the JSON schema document named by the schema flag
// and binds a catalog to the directory named by the dir flag. Parsing
// IDL source text into an idl.Document is out of this module's scope;
// the tool consumes the already-produced document directly.
func openCatalog(ctx *cli.Context) (*schema.Catalog, error) {
	doc, err := jsonfile.ReadJsonFile[idl.Document](ctx.String(schemaFileFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("reading schema document: %w", err)
	}
	return schema.Bind(ctx.String(dbDirectoryFlag.Name), doc, schema.Options{})
}
