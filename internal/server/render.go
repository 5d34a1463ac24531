// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// RenderRequest is the body of POST /v1/render.
type RenderRequest struct {
	Text string `json:"text"`
}

// RenderResponse is the reply of POST /v1/render.
type RenderResponse struct {
	HTML  string `json:"html"`
	Bytes int    `json:"bytes"`
}

// handleRender handles POST /v1/render.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.stats.RenderRequests.Add(1)

	var req RenderRequest
	if !decodeBody(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	if len(req.Text) > MaxTextLength {
		writeError(w, http.StatusBadRequest, "Text exceeds maximum length")
		return
	}

	out, err := s.renderText(req.Text)
	if err != nil {
		log.Printf("RENDER_INVALID | input_bytes=%d error=%v", len(req.Text), err)
		writeError(w, http.StatusInternalServerError, "Rendering failed")
		return
	}

	log.Printf("RENDER_COMPLETE | input_bytes=%d output_bytes=%d lines=%d latency=%s",
		len(req.Text), len(out), strings.Count(req.Text, "\n")+1, time.Since(start).Round(time.Microsecond))
	writeJSON(w, http.StatusOK, RenderResponse{HTML: out, Bytes: len(out)})
}
