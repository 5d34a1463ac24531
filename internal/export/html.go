// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/rigmark/internal/sanitize"
	"github.com/jeranaias/rigmark/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *storage.StoredConversation) ([]byte, error) {
	if err := checkConversation(conv); err != nil {
		return nil, err
	}

	title := html.EscapeString(conversationTitle(conv))
	theme := e.options.Theme
	if theme != "dark" {
		theme = "light"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"rigmark\">\n")
	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339))
	}
	sb.WriteString("    <style>\n")
	sb.WriteString(pageCSS)
	if err := e.writeHighlightCSS(&sb); err != nil {
		return nil, err
	}
	sb.WriteString("    </style>\n")
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		e.writeHeader(&sb, conv, title)
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range conv.Messages {
		e.writeMessage(&sb, &conv.Messages[i])
	}
	sb.WriteString("        </main>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) writeHighlightCSS(sb *strings.Builder) error {
	r := e.options.renderer()
	if !r.Highlighting() {
		return nil
	}
	if err := r.WriteCSS(sb); err != nil {
		return fmt.Errorf("highlight css: %w", err)
	}
	return nil
}

func (e *HTMLExporter) writeHeader(sb *strings.Builder, conv *storage.StoredConversation, title string) {
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(sb, "            <h1>%s</h1>\n", title)
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(conv.Model))
	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt))
	}
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
}

func (e *HTMLExporter) writeMessage(sb *strings.Builder, msg *storage.StoredMessage) {
	roleClass := html.EscapeString(strings.ToLower(msg.Role))
	fmt.Fprintf(sb, "            <div class=\"message %s-message\">\n", roleClass)

	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg.Role)))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">")
	sb.WriteString(e.messageBody(msg))
	sb.WriteString("</div>\n")

	if msg.Role == "assistant" && e.options.IncludeMetadata {
		if stats := formatMessageStats(msg); stats != "" {
			fmt.Fprintf(sb, "                <div class=\"message-stats\">%s</div>\n", html.EscapeString(stats))
		}
	}

	sb.WriteString("            </div>\n")
}

// messageBody returns the markup for a message. Assistant replies go through
// the renderer unless the stored rendering is reused; everything else is
// shown as escaped text.
func (e *HTMLExporter) messageBody(msg *storage.StoredMessage) string {
	if msg.Role != "assistant" {
		text := html.EscapeString(strings.TrimSpace(msg.Content))
		return "<p>" + strings.ReplaceAll(text, "\n", "<br>") + "</p>"
	}

	body := msg.HTML
	if body == "" {
		body = e.options.renderer().Render(msg.Content)
	}
	if e.options.Sanitize {
		body = sanitize.HTML(body)
	}
	return body
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

// pageCSS styles the page chrome and the elements the renderer emits, so
// plain style tables still read well.
const pageCSS = `        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", Monaco, Inconsolata, "Fira Code", "Source Code Pro", monospace;
        }
        .dark-theme {
            --bg-primary: #1a1b26; --bg-secondary: #24283b; --bg-tertiary: #414868;
            --text-primary: #c0caf5; --text-muted: #565f89; --border-color: #414868;
            --code-bg: #1a1b26; --accent-blue: #7aa2f7; --accent-green: #9ece6a;
        }
        .light-theme {
            --bg-primary: #ffffff; --bg-secondary: #f7f8fa; --bg-tertiary: #e1e4e8;
            --text-primary: #24292e; --text-muted: #6a737d; --border-color: #e1e4e8;
            --code-bg: #f6f8fa; --accent-blue: #0366d6; --accent-green: #22863a;
        }
        body { font-family: var(--font-sans); line-height: 1.6; color: var(--text-primary); background: var(--bg-primary); padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; }
        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 24px; padding: 20px; border-radius: 8px; border-left: 4px solid transparent; }
        .user-message { border-left-color: var(--accent-blue); }
        .assistant-message { border-left-color: var(--accent-green); background: var(--bg-primary); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 12px; font-size: 14px; font-weight: 600; }
        .timestamp, .message-stats { color: var(--text-muted); font-size: 13px; font-family: var(--font-mono); }
        .message-stats { margin-top: 12px; }
        .message-content p, .message-content ul, .message-content ol, .message-content table, .message-content pre { margin-bottom: 12px; }
        .message-content h1, .message-content h2, .message-content h3 { margin: 16px 0 8px; }
        .message-content ul, .message-content ol { padding-left: 24px; }
        .message-content table { border-collapse: collapse; width: 100%; }
        .message-content th, .message-content td { border: 1px solid var(--border-color); padding: 6px 10px; text-align: left; }
        .message-content pre { background: var(--code-bg); padding: 16px; border-radius: 8px; overflow-x: auto; }
        .message-content code { font-family: var(--font-mono); font-size: 14px; }
        @media print { .container { border-radius: 0; } .message { page-break-inside: avoid; } }
`
