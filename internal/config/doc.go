// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigmark.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: HTTP service address, limits and CORS
//   - OllamaConfig: Model backend location and defaults
//   - RenderConfig: Style table file, highlighting and sanitizing
//   - StorageConfig: Conversation history database
//   - ExportConfig: Export defaults
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGMARK_*)
//   - ~/.rigmark/config.toml
//   - ~/.rigmark/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	addr := cfg.Server.Addr()
package config
