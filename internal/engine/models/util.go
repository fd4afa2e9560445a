package models

import (
	"fmt"
	"sort"
	"strings"
)

func errNotDeclared(field string) error {
	return fmt.Errorf("record: field %q is not a declared job field", field)
}

func errMissingEvidence(field string) error {
	return fmt.Errorf("record: evidence/data key mismatch for field %q", field)
}

// dedupKeyForData renders a map deterministically (sorted keys) so equal
// maps always produce equal keys regardless of iteration order.
func dedupKeyForData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, data[k])
	}
	return b.String()
}
