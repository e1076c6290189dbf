// Package pdf prints rendered label HTML to A4 PDFs through a headless Chromium.
package pdf

import (
	"html"
	"strings"
)

// TailwindCDN renders the utility classes label templates are written with.
const TailwindCDN = "https://cdn.tailwindcss.com"

const documentStyle = `* {
  margin: 0;
  padding: 0;
  box-sizing: border-box;
  -webkit-print-color-adjust: exact !important;
  print-color-adjust: exact !important;
}
html, body { height: 100%; }
body {
  font-family: ui-sans-serif, system-ui, -apple-system, "Segoe UI", Roboto, Arial, "Noto Sans", "Helvetica Neue", sans-serif;
  font-size: 14px;
  line-height: 1.4;
  color: #111827;
  background: white;
  width: 210mm;
  min-height: 297mm;
}
@page { size: A4; margin: 0; }`

type documentConfig struct {
	title   string
	scripts []string
}

// DocumentOption customises the page wrapper.
type DocumentOption func(*documentConfig)

// WithTitle sets the document title.
func WithTitle(title string) DocumentOption {
	return func(cfg *documentConfig) { cfg.title = strings.TrimSpace(title) }
}

// WithScripts replaces the script URLs loaded in the head. Pass none to load nothing.
func WithScripts(urls ...string) DocumentOption {
	return func(cfg *documentConfig) { cfg.scripts = urls }
}

// Document wraps a label body in a full HTML document sized for A4 with zero margins.
func Document(body string, opts ...DocumentOption) string {
	cfg := documentConfig{scripts: []string{TailwindCDN}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var b strings.Builder
	b.Grow(len(body) + len(documentStyle) + 256)
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if cfg.title != "" {
		b.WriteString("<title>")
		b.WriteString(html.EscapeString(cfg.title))
		b.WriteString("</title>\n")
	}
	for _, src := range cfg.scripts {
		if src = strings.TrimSpace(src); src == "" {
			continue
		}
		b.WriteString(`<script src="`)
		b.WriteString(html.EscapeString(src))
		b.WriteString("\"></script>\n")
	}
	b.WriteString("<style>\n")
	b.WriteString(documentStyle)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
