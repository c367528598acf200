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

var infoCommand = cli.Command{
	Action: getInfo,
	Name:   "info",
	Usage:  "prints a summary of every bound type in a database directory",
	Flags: []cli.Flag{
		&dbDirectoryFlag,
		&schemaFileFlag,
	},
}

func getInfo(ctx *cli.Context) (err error) {
	dir := ctx.String(dbDirectoryFlag.Name)
	log.Printf("Opening typedstore database in %v ...", dir)
	catalog, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer func() {
		log.Printf("Closing typedstore database in %v ...", dir)
		if closeErr := catalog.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				log.Printf("failure closing database: %v", closeErr)
			}
		}
	}()

	for _, name := range catalog.Types() {
		t, _ := catalog.Table(name)
		ids, _, scanErr := t.ScanAll(context.Background())
		if scanErr != nil {
			return scanErr
		}
		fmt.Printf("%-24s %8d records, %8d indexed columns\n", name, len(ids), len(t.Indexes().IndexedColumns()))
	}
	return nil
}
