// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the renderer and the chat backend over HTTP.
//
// # Endpoints
//
//   - POST /v1/render              - Render model text to markup
//   - POST /api/chat               - Ask the model and return raw and rendered replies
//   - GET  /api/conversations/{id} - Stored conversation with rendered messages
//   - GET  /api/languages          - Reply languages offered to the front end
//   - GET  /health                 - Health check
//   - GET  /stats                  - Usage statistics
//
// Error replies are always {"error": "message"}.
//
// # Middleware
//
// Requests pass through panic recovery, request IDs, security headers,
// request logging, per-IP token bucket rate limiting and CORS, in that order.
//
// # Usage
//
//	srv := server.NewServer(cfg, markup.New()).
//		WithBackend(ollama.NewClient()).
//		WithStore(store)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//
// The renderer can be replaced while serving with SetRenderer, which is how
// the style file watcher applies reloaded style tables.
package server
