// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Command typedstoredb is a toolbox for inspecting and seeding a
// typedstore database directory, grounded on tools/state-cli's
// urfave/cli command layout.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Run with `go run ./cmd/typedstoredb`

func main() {
	app := &cli.App{
		Name:      "typedstoredb",
		HelpName:  "typedstoredb",
		Usage:     "A set of utilities to inspect and seed typedstore database directories",
		Copyright: "(c) 2024 Fantom Foundation",
		Commands: []*cli.Command{
			&infoCommand,
			&seedCommand,
			&getCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
