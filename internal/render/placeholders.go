package render

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hansupo/shad-label/internal/domain"
)

// ProductNamePlaceholder always resolves to the product's name.
const ProductNamePlaceholder = "productName"

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// token is a parsed {{label|chain}} occurrence.
type token struct {
	label string
	chain []Filter
}

func parseToken(inner string) token {
	label, chain, _ := strings.Cut(inner, "|")
	return token{label: strings.TrimSpace(label), chain: ParseChain(chain)}
}

// replaceTokens rewrites every {{...}} occurrence with resolve's result. Tokens resolve reports as
// unknown are kept verbatim.
func replaceTokens(html string, resolve func(tok token) (string, bool)) string {
	if !strings.Contains(html, "{{") {
		return html
	}
	return placeholderPattern.ReplaceAllStringFunc(html, func(match string) string {
		tok := parseToken(match[2 : len(match)-2])
		if tok.label == "" {
			return match
		}
		if value, ok := resolve(tok); ok {
			return value
		}
		return match
	})
}

// ResolvePlaceholders substitutes {{Label}} and {{Label|filters}} tokens with the product values
// chosen by SelectFields. Tokens without a value stay in the output untouched.
func ResolvePlaceholders(html string, product domain.Product, catalog []domain.Attribute, filters Filters) string {
	selected := SelectFields(product, catalog)
	byLabel := make(map[string]string, len(selected))
	for _, field := range selected {
		byLabel[field.Attribute.Label] = field.Value
	}
	return replaceTokens(html, func(tok token) (string, bool) {
		if tok.label == ProductNamePlaceholder {
			return filters.Chain(product.Name, tok.chain), true
		}
		value, ok := byLabel[tok.label]
		if !ok {
			return "", false
		}
		return filters.Chain(value, tok.chain), true
	})
}

// Placeholders lists the distinct labels referenced by {{...}} tokens in html, sorted.
func Placeholders(html string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		label := parseToken(m[1]).label
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
