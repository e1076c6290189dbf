package render

import (
	"math"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSearchURL is the outbound product search used by the searchVM filter. The first %s is
// replaced with the url-encoded value.
const DefaultSearchURL = "https://www.vm.ee/otsing?q=%s"

const (
	defaultCurrency           = "€"
	defaultTruncateDelimiters = "(),"
)

var (
	trailingZerosPattern = regexp.MustCompile(`^(.*\.\d*?)0+([€$£¥]?)$`)
	danglingPointPattern = regexp.MustCompile(`\.([€$£¥]?)$`)
	leadingFloatPattern  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingIntPattern    = regexp.MustCompile(`^[+-]?\d+`)
)

// FilterFunc transforms a value using the filter's positional arguments.
type FilterFunc func(value string, args []string) string

// Filter is one step of a placeholder's filter chain.
type Filter struct {
	Name string
	Args []string
}

// Filters maps filter names to implementations. Names are case-sensitive.
type Filters map[string]FilterFunc

// NewFilters returns the built-in filter set. An empty searchURL falls back to DefaultSearchURL.
func NewFilters(searchURL string) Filters {
	return Filters{
		"removeTrailingZeros": func(value string, _ []string) string {
			return RemoveTrailingZeros(value)
		},
		"formatCurrency": func(value string, args []string) string {
			return FormatCurrency(value, argOr(args, 0, defaultCurrency))
		},
		"round": func(value string, args []string) string {
			decimals, ok := parseLeadingInt(argOr(args, 0, "0"))
			if !ok || decimals < 0 {
				decimals = 0
			}
			return Round(value, decimals)
		},
		"truncate": func(value string, args []string) string {
			return Truncate(value, argOr(args, 0, defaultTruncateDelimiters))
		},
		"urlEncode": func(value string, _ []string) string {
			return EncodeURIComponent(value)
		},
		"searchVM": searchFilter(searchURL),
	}
}

func searchFilter(searchURL string) FilterFunc {
	searchURL = strings.TrimSpace(searchURL)
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return func(value string, _ []string) string {
		return SearchURL(searchURL, value)
	}
}

// Apply runs a single filter. Unknown filters return the value unchanged.
func (f Filters) Apply(value, name string, args []string) string {
	fn, ok := f[name]
	if !ok || fn == nil {
		return value
	}
	return fn(value, args)
}

// Chain applies the filters left to right, feeding each the previous output.
func (f Filters) Chain(value string, chain []Filter) string {
	for _, step := range chain {
		value = f.Apply(value, step.Name, step.Args)
	}
	return value
}

// ParseChain splits "name:arg:arg|name" into filter steps. Empty steps are skipped.
func ParseChain(raw string) []Filter {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	chain := make([]Filter, 0, len(parts))
	for _, part := range parts {
		segments := strings.Split(part, ":")
		name := strings.TrimSpace(segments[0])
		if name == "" {
			continue
		}
		var args []string
		if len(segments) > 1 {
			args = segments[1:]
		}
		chain = append(chain, Filter{Name: name, Args: args})
	}
	return chain
}

// RemoveTrailingZeros strips zero digits at the end of a fractional part, keeping an optional
// trailing currency symbol. "1999.00€" becomes "1999€" and "49.90" becomes "49.9".
func RemoveTrailingZeros(value string) string {
	m := trailingZerosPattern.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	stripped := m[1] + m[2]
	return danglingPointPattern.ReplaceAllString(stripped, "$1")
}

// FormatCurrency renders the leading number of value with two decimals and the currency suffix,
// then drops redundant zeros. Values without a leading number are returned unchanged.
func FormatCurrency(value, currency string) string {
	n, ok := parseLeadingFloat(value)
	if !ok {
		return value
	}
	return RemoveTrailingZeros(toFixed(n, 2) + currency)
}

// Round formats the leading number of value with the given number of decimals.
func Round(value string, decimals int) string {
	n, ok := parseLeadingFloat(value)
	if !ok {
		return value
	}
	if decimals > 100 {
		decimals = 100
	}
	return toFixed(n, decimals)
}

// fixedPrec holds any float64 scaled by up to 10^100 without loss.
const fixedPrec = 1024

// toFixed formats n with the given number of decimals. Exact ties on the binary value round half
// away from zero, so 2.5 gives "3" and 19.125 gives "19.13". Magnitudes of 1e21 and above use
// exponent notation.
func toFixed(n float64, decimals int) string {
	if math.Abs(n) >= 1e21 {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Float).SetPrec(fixedPrec).SetFloat64(math.Abs(n))
	scaled.Mul(scaled, new(big.Float).SetPrec(fixedPrec).SetInt(scale))

	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(fixedPrec).SetInt(whole)
	frac.Sub(scaled, frac)
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		whole.Add(whole, big.NewInt(1))
	}

	digits := whole.String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
	}
	if n < 0 {
		return "-" + digits
	}
	return digits
}

// Truncate returns the trimmed text preceding the first delimiter character.
func Truncate(value, delimiters string) string {
	if delimiters == "" {
		delimiters = defaultTruncateDelimiters
	}
	idx := strings.IndexAny(value, delimiters)
	if idx < 0 {
		return value
	}
	return strings.TrimSpace(value[:idx])
}

// EncodeURIComponent escapes value for use as a URL component, leaving A-Z a-z 0-9 and -_.!~*'()
// untouched.
func EncodeURIComponent(value string) string {
	escaped := url.QueryEscape(value)
	return uriComponentReplacer.Replace(escaped)
}

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// SearchURL builds the outbound search link for value and encodes the whole link once more so it
// can itself be embedded as a query value. Other percent sequences in template are kept as they are.
func SearchURL(template, value string) string {
	var link string
	if strings.Contains(template, "%s") {
		link = strings.Replace(template, "%s", EncodeURIComponent(value), 1)
	} else {
		link = template + EncodeURIComponent(value)
	}
	return EncodeURIComponent(link)
}

func argOr(args []string, idx int, fallback string) string {
	if idx < len(args) && args[idx] != "" {
		return args[idx]
	}
	return fallback
}

func parseLeadingFloat(value string) (float64, bool) {
	match := leadingFloatPattern.FindString(strings.TrimSpace(value))
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseLeadingInt(value string) (int, bool) {
	match := leadingIntPattern.FindString(strings.TrimSpace(value))
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
