package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeLabels(t *testing.T) {
	t.Run("trims labels and keeps values", func(t *testing.T) {
		input := map[string]string{
			" Color ": " Red ",
			"Price":   "49.90",
			"empty":   "",
			" ":       "ignored",
			"":        "ignored",
		}

		expected := map[string]string{
			"Color": " Red ",
			"Price": "49.90",
			"empty": "",
		}

		actual := NormalizeLabels(input)
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns an empty map for nil input", func(t *testing.T) {
		actual := NormalizeLabels(nil)
		if actual == nil || len(actual) != 0 {
			t.Fatalf("expected empty non-nil map, got %#v", actual)
		}
	})
}
