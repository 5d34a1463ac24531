// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small text and file helpers shared by rigmark's
// commands and services.
//
// # Key Functions
//
// Text:
//   - NormalizeText: Unicode NFC normalization for incoming model text
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Truncation by terminal display width
//   - Snippet: One-line preview of a message for listings
//
// Files:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	text := util.NormalizeText(resp.Message.Content)
//	fmt.Println(util.Snippet(text, 60))
//	err := util.AtomicWriteFile(path, data, 0644)
package util
