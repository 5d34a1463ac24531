// rigmark - Render LLM chat output as styled, well-formed HTML.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"io"
	"log"
	"os"

	"github.com/jeranaias/rigmark/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Event logs are for the server and for --verbose runs.
	if cmd != cli.CmdServe && !args.Verbose {
		log.SetOutput(io.Discard)
	}

	if err := cli.Run(cmd, args); err != nil {
		w := os.Stderr
		if args.JSON {
			w = os.Stdout
		}
		cli.DisplayError(w, cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}
