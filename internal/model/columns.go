package model

import "sort"

// OrderedColumns returns the keys of row with the names listed in preferred
// first (when present in row), followed by the rest in lexical order.
func OrderedColumns(row Row, preferred []string) []string {
	seen := make(map[string]bool, len(row))
	cols := make([]string, 0, len(row))
	for _, k := range preferred {
		if _, ok := row[k]; ok && !seen[k] {
			cols = append(cols, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range row {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}
