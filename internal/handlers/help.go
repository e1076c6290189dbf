package handlers

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"github.com/hansupo/shad-label/internal/platform/httpx"
)

//go:embed help/guide.md
var guideSource []byte

// HelpPage is the rendered template guide.
type HelpPage struct {
	Title     string
	Summary   string
	UpdatedAt time.Time
	HTML      string
}

type helpFrontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

// HelpHandlers serves the template syntax guide. The page is rendered once on first request.
type HelpHandlers struct {
	source []byte

	once sync.Once
	page HelpPage
	err  error
}

func NewHelpHandlers() *HelpHandlers {
	return &HelpHandlers{source: guideSource}
}

// Routes registers the guide beneath /help.
func (h *HelpHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.guide)
}

func (h *HelpHandlers) guide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.once.Do(func() {
		h.page, h.err = RenderHelpPage(h.source)
	})
	if h.err != nil {
		httpx.WriteError(ctx, w, httpx.Internal("help page unavailable"))
		return
	}
	writeJSONResponse(w, http.StatusOK, helpPayload{
		Title:     h.page.Title,
		Summary:   h.page.Summary,
		UpdatedAt: h.page.UpdatedAt.Format("2006-01-02"),
		HTML:      h.page.HTML,
	})
}

type helpPayload struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	UpdatedAt string `json:"updated_at"`
	HTML      string `json:"html"`
}

// RenderHelpPage converts markdown with optional YAML front matter to sanitized HTML.
func RenderHelpPage(source []byte) (HelpPage, error) {
	fm, body := splitFrontMatter(string(source))
	var front helpFrontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return HelpPage{}, fmt.Errorf("help: parse front matter: %w", err)
		}
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return HelpPage{}, fmt.Errorf("help: render markdown: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")

	page := HelpPage{
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		HTML:    policy.Sanitize(buf.String()),
	}
	if ts, err := time.Parse("2006-01-02", strings.TrimSpace(front.UpdatedAt)); err == nil {
		page.UpdatedAt = ts
	}
	if page.Title == "" {
		page.Title = "Help"
	}
	return page, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}
