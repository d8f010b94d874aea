package repolist

import (
	"sort"
	"strings"
)

// Normalize removes duplicates and ignored names from all and returns the
// rest sorted case-insensitively. Names that differ only in case are ordered
// by their original spelling so the result is fully deterministic.
func Normalize(all []string, ignore []string) []string {
	skip := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		skip[name] = true
	}

	seen := make(map[string]bool, len(all))
	result := make([]string, 0, len(all))
	for _, name := range all {
		if skip[name] || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}

	sort.Slice(result, func(i, j int) bool {
		return lessFold(result[i], result[j])
	})

	return result
}

func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// Diff reports which names were added to and removed from previous
func Diff(previous, current []string) (added, removed []string) {
	before := make(map[string]bool, len(previous))
	for _, name := range previous {
		before[name] = true
	}

	after := make(map[string]bool, len(current))
	for _, name := range current {
		after[name] = true
		if !before[name] {
			added = append(added, name)
		}
	}

	for _, name := range previous {
		if !after[name] {
			removed = append(removed, name)
			// report each removed name once
			after[name] = true
		}
	}

	return added, removed
}
