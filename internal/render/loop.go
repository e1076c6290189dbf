package render

import (
	"sort"
	"strings"

	"github.com/hansupo/shad-label/internal/domain"
)

// LoopConfig constrains which fields a loop marker renders. Nil fields impose no constraint.
type LoopConfig struct {
	PriorityMin *int
	PriorityMax *int
	Limit       *int
	Types       []string
	Required    *bool
}

// Field pairs an attribute definition with the product value selected for it.
type Field struct {
	Attribute domain.Attribute
	Value     string
}

// ParseLoopConfig reads a "key:value; key:value" loop configuration. Unknown keys, keys without a
// value and unparsable numbers are ignored.
func ParseLoopConfig(raw string) LoopConfig {
	var cfg LoopConfig
	for _, pair := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "priorityMin":
			cfg.PriorityMin = intPtr(value)
		case "priorityMax":
			cfg.PriorityMax = intPtr(value)
		case "limit":
			cfg.Limit = intPtr(value)
		case "type":
			types := make([]string, 0, 4)
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					types = append(types, t)
				}
			}
			cfg.Types = types
		case "required":
			required := value == "true"
			cfg.Required = &required
		}
	}
	return cfg
}

// Allows reports whether attr satisfies the priority, type and required constraints.
func (c LoopConfig) Allows(attr domain.Attribute) bool {
	if c.PriorityMin != nil && attr.Priority < *c.PriorityMin {
		return false
	}
	if c.PriorityMax != nil && attr.Priority > *c.PriorityMax {
		return false
	}
	if c.Types != nil && !containsString(c.Types, string(attr.Type)) {
		return false
	}
	if c.Required != nil && attr.Required != *c.Required {
		return false
	}
	return true
}

// ResolveLoop selects one field per product label, filters them by cfg and orders them by priority,
// highest first.
func ResolveLoop(cfg LoopConfig, product domain.Product, catalog []domain.Attribute) []Field {
	selected := SelectFields(product, catalog)
	out := make([]Field, 0, len(selected))
	for _, field := range selected {
		if cfg.Allows(field.Attribute) {
			out = append(out, field)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Attribute.Priority > out[j].Attribute.Priority
	})
	if cfg.Limit != nil && *cfg.Limit > 0 && len(out) > *cfg.Limit {
		out = out[:*cfg.Limit]
	}
	return out
}

// SelectFields picks, for every label with a non-blank product value, the definition with the
// highest priority; equal priorities go to the lowest ID. Labels with no catalog attribute are not
// selected, so loops skip them and their placeholders stay unresolved.
//
// The result follows catalog order.
func SelectFields(product domain.Product, catalog []domain.Attribute) []Field {
	if len(product.Attributes) == 0 {
		return nil
	}

	type choice struct {
		field Field
		index int
	}
	chosen := make(map[string]choice, len(product.Attributes))
	for idx, attr := range catalog {
		value, ok := product.Attributes[attr.Label]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		current, seen := chosen[attr.Label]
		if seen && !outranks(attr, current.field.Attribute) {
			continue
		}
		chosen[attr.Label] = choice{field: Field{Attribute: attr, Value: value}, index: idx}
	}

	ordered := make([]choice, 0, len(chosen))
	for _, c := range chosen {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

	out := make([]Field, 0, len(ordered))
	for _, c := range ordered {
		out = append(out, c.field)
	}
	return out
}

func outranks(candidate, current domain.Attribute) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	return candidate.ID < current.ID
}

func intPtr(value string) *int {
	n, ok := parseLeadingInt(value)
	if !ok {
		return nil
	}
	return &n
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
