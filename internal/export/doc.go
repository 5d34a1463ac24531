// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored conversations to HTML, Markdown and JSON.
//
// The HTML exporter renders assistant replies with the markup renderer, so
// an exported page shows lists, tables and code the same way the chat front
// end does.
//
// # Key Types
//
//   - Exporter: Format-specific export interface
//   - Options: Export configuration options
//
// # Usage
//
//	exporter, err := export.ForFormat("html", export.DefaultOptions())
//	path, err := export.ExportToFile(conv, exporter, opts)
package export
