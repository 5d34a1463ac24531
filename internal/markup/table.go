// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import "strings"

// isTableRow reports whether a line is pipe delimited on both ends.
func isTableRow(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= 2 && t[0] == '|' && t[len(t)-1] == '|'
}

// isTableSeparator reports whether a line is a header separator such as
// "|---|:--:|". At least one dash is required.
func isTableSeparator(line string) bool {
	if !isTableRow(line) {
		return false
	}
	dash := false
	for _, c := range strings.TrimSpace(line) {
		switch c {
		case '-':
			dash = true
		case '|', ':', ' ', '\t':
		default:
			return false
		}
	}
	return dash
}

// splitCells splits a row on pipes, trims every cell and drops empty ones.
func splitCells(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

// tables replaces every header/separator/body block with a rendered table.
// Scanning is greedy and never backtracks: body rows are consumed until the
// first line that is not a row, and a consumed line never starts a new table.
func (r *Renderer) tables(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		if i+2 < len(lines) &&
			isTableRow(lines[i]) &&
			isTableSeparator(lines[i+1]) &&
			isTableRow(lines[i+2]) {

			header := splitCells(lines[i])
			if len(header) > 0 {
				end := i + 2
				for end < len(lines) && isTableRow(lines[end]) {
					end++
				}
				out = append(out, r.renderTable(header, lines[i+2:end]))
				i = end
				continue
			}
		}
		out = append(out, lines[i])
		i++
	}
	return strings.Join(out, "\n")
}

// renderTable emits a table as a single line. Row stripes follow the body
// row index, including rows skipped for having no cells.
func (r *Renderer) renderTable(header []string, rows []string) string {
	st := &r.styles
	var b strings.Builder

	b.WriteString(open("div", st.TableWrapper))
	b.WriteString(open("table", st.Table))
	b.WriteString("<thead><tr>")
	for _, cell := range header {
		b.WriteString(open("th", st.HeaderCell))
		b.WriteString(cell)
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead>")

	var body strings.Builder
	for idx, row := range rows {
		cells := splitCells(row)
		if len(cells) == 0 {
			continue
		}
		stripe := st.CellEven
		if idx%2 == 1 {
			stripe = st.CellOdd
		}
		tdOpen := open("td", joinClass(st.Cell, stripe))

		body.WriteString(open("tr", st.Row))
		for _, cell := range cells {
			body.WriteString(tdOpen)
			body.WriteString(cell)
			body.WriteString("</td>")
		}
		body.WriteString("</tr>")
	}
	if body.Len() > 0 {
		b.WriteString("<tbody>")
		b.WriteString(body.String())
		b.WriteString("</tbody>")
	}

	b.WriteString("</table></div>")
	return b.String()
}
