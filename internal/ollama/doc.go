// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client rigmark uses to ask a local
// Ollama server for chat completions.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - Message: Chat message with role and content
//   - ChatResponse: Complete response with timing metrics
//   - StreamChunk: One piece of a streamed response
//
// # Usage
//
//	client := ollama.NewClient()
//	resp, err := client.Chat(ctx, "", []ollama.Message{
//	    ollama.NewUserMessage("Where can I eat near KLCC?"),
//	})
//
// Streaming:
//
//	err := client.ChatStream(ctx, "", messages, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
package ollama
