package repositories

import (
	"sort"
	"strings"

	"github.com/hansupo/shad-label/internal/domain"
)

// SortAttributes orders definitions by priority descending, then name ascending, then ID.
func SortAttributes(attrs []domain.Attribute) {
	sort.SliceStable(attrs, func(i, j int) bool {
		if attrs[i].Priority != attrs[j].Priority {
			return attrs[i].Priority > attrs[j].Priority
		}
		if attrs[i].Name != attrs[j].Name {
			return attrs[i].Name < attrs[j].Name
		}
		return attrs[i].ID < attrs[j].ID
	})
}

// SortProducts orders products newest first. IDs are ULIDs, so they break ties by creation order.
func SortProducts(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID > products[j].ID
	})
}

// SortTemplates orders templates newest first.
func SortTemplates(templates []domain.LabelTemplate) {
	sort.SliceStable(templates, func(i, j int) bool {
		if !templates[i].CreatedAt.Equal(templates[j].CreatedAt) {
			return templates[i].CreatedAt.After(templates[j].CreatedAt)
		}
		return templates[i].ID > templates[j].ID
	})
}

// MatchProduct reports whether the product name or any attribute value contains query,
// ignoring case. A blank query matches everything.
func MatchProduct(product domain.Product, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(product.Name), query) {
		return true
	}
	for _, value := range product.Attributes {
		if strings.Contains(strings.ToLower(value), query) {
			return true
		}
	}
	return false
}

// FilterProducts keeps the products matching filter, preserving order.
func FilterProducts(products []domain.Product, filter ProductListFilter) []domain.Product {
	if strings.TrimSpace(filter.Query) == "" {
		return products
	}
	out := products[:0:0]
	for _, p := range products {
		if MatchProduct(p, filter.Query) {
			out = append(out, p)
		}
	}
	return out
}
