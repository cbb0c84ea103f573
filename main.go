// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Lingo.
//
// Usage:
//
//	go run . [flags]
//	./lingo serve --server.listen :8080
//
// Without a subcommand the web server starts. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("lingo: %v", err)
		os.Exit(1)
	}
}
