// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrMalformed is wrapped by every error returned from Validate.
var ErrMalformed = errors.New("malformed markup")

var (
	voidElements = map[string]bool{
		"br": true, "hr": true, "img": true, "wbr": true,
	}
	blockElements = map[string]bool{
		"p": true, "div": true, "pre": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"ul": true, "ol": true, "li": true,
		"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
	}
	// Containers that must never be emitted empty. The outer wrapper div is
	// allowed to be empty for empty input.
	nonEmptyElements = map[string]bool{
		"p": true, "pre": true, "li": true, "ul": true, "ol": true,
		"h1": true, "h2": true, "h3": true,
		"table": true, "thead": true, "tbody": true, "tr": true,
		"strong": true, "em": true, "code": true,
	}
)

type openElement struct {
	tag      string
	children int
}

// Validate checks that markup produced by a Renderer is structurally sound:
// every element is closed exactly once in the right order, no block element
// sits inside a paragraph, list items only appear inside lists and no
// container is empty.
func Validate(markup string) error {
	z := html.NewTokenizer(strings.NewReader(markup))
	var stack []openElement

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if len(stack) > 0 {
				return fmt.Errorf("%w: <%s> never closed", ErrMalformed, stack[len(stack)-1].tag)
			}
			return nil

		case html.TextToken:
			if len(z.Text()) > 0 && len(stack) > 0 {
				stack[len(stack)-1].children++
			}

		case html.SelfClosingTagToken:
			if len(stack) > 0 {
				stack[len(stack)-1].children++
			}

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if len(stack) > 0 {
				stack[len(stack)-1].children++
			}
			if voidElements[tag] {
				continue
			}
			if blockElements[tag] {
				for _, e := range stack {
					if e.tag == "p" {
						return fmt.Errorf("%w: <%s> inside <p>", ErrMalformed, tag)
					}
				}
			}
			if tag == "li" {
				if len(stack) == 0 || (stack[len(stack)-1].tag != "ul" && stack[len(stack)-1].tag != "ol") {
					return fmt.Errorf("%w: <li> outside a list", ErrMalformed)
				}
			}
			stack = append(stack, openElement{tag: tag})

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			if len(stack) == 0 {
				return fmt.Errorf("%w: </%s> without opening tag", ErrMalformed, tag)
			}
			top := stack[len(stack)-1]
			if top.tag != tag {
				return fmt.Errorf("%w: </%s> closes <%s>", ErrMalformed, tag, top.tag)
			}
			if nonEmptyElements[tag] && top.children == 0 {
				return fmt.Errorf("%w: empty <%s>", ErrMalformed, tag)
			}
			stack = stack[:len(stack)-1]
		}
	}
}
