// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup_test

import (
	"fmt"

	"github.com/jeranaias/rigmark/internal/markup"
)

func ExampleRender() {
	r := markup.New(markup.WithStyles(markup.PlainStyles()))
	fmt.Println(r.Render("## Menu\n\n1. Hours: 9am-9pm\n2. **Halal** options"))
	// Output: <div><h2>Menu</h2><ol><li><strong>Hours:</strong> 9am-9pm</li><li><strong><strong>Halal</strong> options</strong></li></ol></div>
}

func ExampleValidate() {
	fmt.Println(markup.Validate(markup.Render("- a\n- b\n\ntext")))
	fmt.Println(markup.Validate("<p><ul><li>x</li></ul></p>"))
	// Output:
	// <nil>
	// malformed markup: <ul> inside <p>
}

func ExampleRenderer_Trace() {
	r := markup.New(markup.WithStyles(markup.PlainStyles()))
	for _, step := range r.Trace("*hi*") {
		if step.Stage == "emphasis" || step.Stage == "restore" {
			fmt.Printf("%s: %s\n", step.Stage, step.Output)
		}
	}
	// Output:
	// emphasis: <em>hi</em>
	// restore: <div><p><em>hi</em></p></div>
}
