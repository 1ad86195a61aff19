// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


// Command biostored serves the method boundary over local HTTP. It is
// "biostore serve" under its own name for service managers.
package main

import (
	"os"

	"github.com/jeremyhahn/go-biostore/internal/cli"
)

func main() {
	if err := cli.ExecuteArgs(append([]string{"serve"}, os.Args[1:]...)); err != nil {
		os.Exit(1)
	}
}
