// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sanitize strips rendered chat markup down to the elements and
// attributes the renderer itself produces.
//
// The renderer already escapes all model text, so on its own output the
// policy is a no-op. It exists for markup that crossed a trust boundary:
// documents read back from storage, or renderers built with style tables
// from untrusted files.
package sanitize

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Elements lists every element the markup renderer can emit.
var Elements = []string{
	"div", "p", "br",
	"h1", "h2", "h3",
	"strong", "em",
	"ul", "ol", "li", "span",
	"table", "thead", "tbody", "tr", "th", "td",
	"pre", "code",
}

// classValue admits Tailwind-style class lists, including variants such as
// "hover:bg-gray-100" and "w-1/2", and chroma token classes.
var classValue = regexp.MustCompile(`^[\p{L}\p{N}\s_:./\[\]#%()!+-]+$`)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the shared policy. bluemonday policies are safe for
// concurrent use once built.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = NewPolicy()
	})
	return policy
}

// NewPolicy builds a policy allowing the renderer's elements with their
// class attributes and nothing else.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(Elements...)
	p.AllowNoAttrs().OnElements(Elements...)
	p.AllowAttrs("class").Matching(classValue).OnElements(Elements...)
	return p
}

// HTML sanitizes rendered markup.
func HTML(markup string) string {
	return Policy().Sanitize(markup)
}
