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
	"fmt"
	"log"

	"github.com/urfave/cli/v2"
)

var seedFileFlag = cli.StringFlag{
	Name:     "seed",
	Usage:    "path to a JSON seed document to load",
	Required: true,
}

var seedCommand = cli.Command{
	Action: runSeed,
	Name:   "seed",
	Usage:  "loads a JSON seed document into a database directory",
	Flags: []cli.Flag{
		&dbDirectoryFlag,
		&schemaFileFlag,
		&seedFileFlag,
	},
}

func runSeed(ctx *cli.Context) (err error) {
	dir := ctx.String(dbDirectoryFlag.Name)
	log.Printf("Opening typedstore database in %v ...", dir)
	catalog, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := catalog.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	result, err := catalog.LoadSeedFile(context.Background(), ctx.String(seedFileFlag.Name))
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d records, %d violations\n", result.Loaded, len(result.Violations))
	for _, v := range result.Violations {
		fmt.Printf("  - %v\n", &v)
	}
	return nil
}
