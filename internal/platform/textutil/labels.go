// Package textutil holds small string helpers shared by the import paths.
package textutil

import "strings"

// NormalizeLabels trims attribute labels and drops entries whose label is blank. Values are kept
// verbatim so imported text prints exactly as supplied. The result is never nil.
func NormalizeLabels(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for label, value := range values {
		if label = strings.TrimSpace(label); label == "" {
			continue
		}
		result[label] = value
	}
	return result
}
