// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for rigmark.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdRender
	CmdServe
	CmdAsk
	CmdChat
	CmdExport
	CmdSessions
	CmdConfig
	CmdVersion
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdHelp:
		return "help"
	case CmdRender:
		return "render"
	case CmdServe:
		return "serve"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdExport:
		return "export"
	case CmdSessions:
		return "sessions"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool   // Output in JSON format
	Model      string // Overrides ollama.model
	ConfigPath string // Alternate config file

	// Name is the command word as typed, kept for error messages.
	Name string

	// Raw holds the arguments after the command word, for the command's ArgParser.
	Raw []string
}

const usageText = `rigmark - render LLM chat output as styled, well-formed HTML

Usage:
  rigmark render [FILE|-]         Render model text to markup
  rigmark serve                   Run the HTTP render and chat service
  rigmark ask "question"          Ask the model once and print the reply
  rigmark chat                    Interactive chat, saved to history
  rigmark export ID               Export a stored conversation
  rigmark sessions [subcommand]   Manage stored conversations
  rigmark config [subcommand]     Show or edit configuration
  rigmark version                 Show version
  rigmark help                    Show this help

Render Flags:
  -o, --out FILE        Write markup to FILE instead of stdout
  --check               Validate the markup and report problems
  --trace               Print the output of every pipeline stage
  --preview             Show the source as formatted terminal text
  --copy                Copy the markup to the clipboard
  --styles FILE         Use a TOML style table
  --highlight           Syntax highlight fenced code
  --plain               Emit markup without class attributes

Serve Flags:
  --port N              Override server.port
  --host ADDR           Override server.host

Ask Flags:
  --lang en|ms|zh       Reply language (default: en)
  --html                Print rendered markup instead of text

Chat Flags:
  --lang en|ms|zh       Reply language (default: en)
  --resume ID           Continue a stored conversation (ID prefix accepted)

Export Flags:
  -f, --format FMT      html, md or json (default: html)
  -o, --out FILE        Output file (default: generated name in export.output_dir)
  --theme light|dark    HTML theme
  --open                Open the file after export

Sessions Commands:
  rigmark sessions list [--limit N] [--search TEXT]
  rigmark sessions show ID
  rigmark sessions delete ID --confirm
  rigmark sessions stats

Config Commands:
  rigmark config show             Print the effective configuration
  rigmark config path             Print the config file location
  rigmark config get KEY          Print one value (e.g. server.port)
  rigmark config keys             List every settable key
  rigmark config set KEY VALUE    Change one value and save
  rigmark config init [--force] [--styles FILE]
                                  Write a starter config (and style table)

Global Flags:
  -q, --quiet           Minimal output
  -v, --verbose         Debug output
  --json                Output in JSON format
  --model NAME          Override the configured model
  --config FILE         Use an alternate config file

Environment:
  RIGMARK_HOST, RIGMARK_PORT, RIGMARK_OLLAMA_URL, RIGMARK_MODEL, RIGMARK_STYLES,
  RIGMARK_HIGHLIGHT, RIGMARK_SANITIZE, RIGMARK_STRICT, RIGMARK_DB, NO_COLOR

Examples:
  echo "## Hours\n1. Mon: 9-5" | rigmark render
  rigmark render reply.md --check --trace
  rigmark serve --port 9000
  rigmark ask "Best nasi lemak in KL?" --lang ms
  rigmark sessions list --search nasi
  rigmark export 3f2a --format md

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rigmark version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdHelp, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	parsedArgs.Name = cmd
	parsedArgs.Raw = remaining[1:]

	switch cmd {
	case "render", "r":
		return CmdRender, parsedArgs
	case "serve", "server":
		return CmdServe, parsedArgs
	case "ask":
		return CmdAsk, parsedArgs
	case "chat":
		return CmdChat, parsedArgs
	case "export":
		return CmdExport, parsedArgs
	case "sessions", "session":
		return CmdSessions, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Global flags may appear anywhere on the line.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--model", "-m":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--config="):
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// Run executes a parsed command.
func Run(cmd Command, args Args) error {
	switch cmd {
	case CmdRender:
		return HandleRender(args)
	case CmdServe:
		return HandleServe(args)
	case CmdAsk:
		return HandleAsk(args)
	case CmdChat:
		return HandleChat(args)
	case CmdExport:
		return HandleExport(args)
	case CmdSessions:
		return HandleSessions(args)
	case CmdConfig:
		return HandleConfig(args)
	case CmdVersion:
		return HandleVersion(args)
	case CmdHelp:
		PrintUsage(os.Stdout)
		return nil
	default:
		PrintUsage(os.Stderr)
		return NewValidationErrorWithExample("command", args.Name, "unknown command", "rigmark help")
	}
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(os.Stdout)
	}
	PrintVersion(os.Stdout)
	return nil
}
