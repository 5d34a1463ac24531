// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for rigmark.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Global flags plus the raw arguments of the command
//   - ArgParser: Per-command flag and positional parsing
//   - ChatSession: State of an interactive chat
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if err := cli.Run(cmd, args); err != nil {
//	    cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
//   - render: Convert model text to markup, with --check and --trace
//   - serve: HTTP service for the chat front end
//   - ask: One question to the model
//   - chat: Interactive chat with stored history
//   - export: Write a stored conversation as HTML, Markdown or JSON
//   - sessions: List, show, delete and count stored conversations
//   - config: Inspect and edit the configuration file
//
// All commands support --json for scripting.
package cli
