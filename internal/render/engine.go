// Package render implements the label template language: {{Label|filter:arg}} placeholders and
// data-attribute-loop elements resolved against a product and an attribute catalog snapshot.
package render

import (
	"maps"
	"strings"

	"github.com/hansupo/shad-label/internal/domain"
)

// DefaultEmptyMessage is returned when there is neither a product nor template content to show.
const DefaultEmptyMessage = "<p>Select a product to preview...</p>"

// Loop body placeholders.
const (
	LoopLabelPlaceholder = "attributeLabel"
	LoopValuePlaceholder = "attributeValue"
	LoopNamePlaceholder  = "attributeName"
	LoopTypePlaceholder  = "attributeType"
)

// Engine renders templates. It holds no per-render state and is safe for concurrent use.
type Engine struct {
	filters      Filters
	emptyMessage string
}

// Option customises an Engine.
type Option func(*Engine)

// WithFilters replaces the filter set.
func WithFilters(filters Filters) Option {
	return func(e *Engine) {
		if filters != nil {
			e.filters = filters
		}
	}
}

// WithSearchURL configures the link template used by the searchVM filter. Other filters, including
// ones set by WithFilters, are kept whatever the option order.
func WithSearchURL(searchURL string) Option {
	return func(e *Engine) {
		filters := maps.Clone(e.filters)
		if filters == nil {
			filters = Filters{}
		}
		filters["searchVM"] = searchFilter(searchURL)
		e.filters = filters
	}
}

// WithEmptyMessage overrides the message shown for an empty template without a product.
func WithEmptyMessage(message string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(message) != "" {
			e.emptyMessage = message
		}
	}
}

// NewEngine builds an Engine with the default filter set.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		filters:      NewFilters(""),
		emptyMessage: DefaultEmptyMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Filters exposes the engine's filter set.
func (e *Engine) Filters() Filters {
	return e.filters
}

// Render expands loop elements and then substitutes placeholders. Without a product the template is
// returned unchanged, or the empty message when the template is blank.
func (e *Engine) Render(tpl string, product *domain.Product, catalog []domain.Attribute) string {
	if product == nil {
		if tpl == "" {
			return e.emptyMessage
		}
		return tpl
	}
	expanded := e.ExpandLoops(tpl, *product, catalog)
	return ResolvePlaceholders(expanded, *product, catalog, e.filters)
}

// ExpandLoops replaces each loop element, wrapper included, with one copy of its body per field
// returned by ResolveLoop.
func (e *Engine) ExpandLoops(tpl string, product domain.Product, catalog []domain.Attribute) string {
	blocks := findLoops(tpl)
	if len(blocks) == 0 {
		return tpl
	}

	var b strings.Builder
	b.Grow(len(tpl))
	last := 0
	for _, block := range blocks {
		b.WriteString(tpl[last:block.start])
		fields := ResolveLoop(ParseLoopConfig(block.config), product, catalog)
		for _, field := range fields {
			b.WriteString(e.renderLoopBody(block.body, field))
		}
		last = block.end
	}
	b.WriteString(tpl[last:])
	return b.String()
}

func (e *Engine) renderLoopBody(body string, field Field) string {
	return replaceTokens(body, func(tok token) (string, bool) {
		var value string
		switch tok.label {
		case LoopLabelPlaceholder:
			value = field.Attribute.Label
		case LoopValuePlaceholder:
			value = field.Value
		case LoopNamePlaceholder:
			value = field.Attribute.Name
		case LoopTypePlaceholder:
			value = string(field.Attribute.Type)
		default:
			return "", false
		}
		return e.filters.Chain(value, tok.chain), true
	})
}
