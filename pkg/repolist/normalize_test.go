package repolist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		all      []string
		ignore   []string
		expected []string
	}{
		{
			name:     "ignored repository removed",
			all:      []string{"test-application", "Repo2", "repo3"},
			ignore:   []string{"test-application"},
			expected: []string{"Repo2", "repo3"},
		},
		{
			name:     "duplicates across projects collapse",
			all:      []string{"shared", "alpha", "shared", "beta"},
			expected: []string{"alpha", "beta", "shared"},
		},
		{
			name:     "case-insensitive ordering",
			all:      []string{"zeta", "Alpha", "beta", "Gamma"},
			expected: []string{"Alpha", "beta", "Gamma", "zeta"},
		},
		{
			name:     "names differing only in case are both kept",
			all:      []string{"repo", "Repo", "REPO"},
			expected: []string{"REPO", "Repo", "repo"},
		},
		{
			name:     "ignore matches exactly",
			all:      []string{"Legacy", "legacy"},
			ignore:   []string{"legacy"},
			expected: []string{"Legacy"},
		},
		{
			name:     "everything ignored",
			all:      []string{"a", "b"},
			ignore:   []string{"a", "b", "c"},
			expected: []string{},
		},
		{
			name:     "empty input",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.all, tt.ignore))
		})
	}
}

func TestNormalize_Properties(t *testing.T) {
	all := []string{"b", "A", "c", "a", "B", "test-application", "c", "terraform-in-bitbucket-test", "_x", "Z9"}
	ignore := []string{"test-application", "terraform-in-bitbucket-test"}

	once := Normalize(all, ignore)

	// Idempotent
	assert.Equal(t, once, Normalize(once, ignore))

	seen := make(map[string]bool)
	for i, name := range once {
		// Ignored names never appear
		assert.NotContains(t, ignore, name)

		// No duplicates
		assert.False(t, seen[name], "duplicate %q", name)
		seen[name] = true

		// Sorted by lowercase form
		if i > 0 {
			assert.LessOrEqual(t, strings.ToLower(once[i-1]), strings.ToLower(name))
		}
	}
}

func TestDiff(t *testing.T) {
	added, removed := Diff(
		[]string{"alpha", "beta", "beta", "gamma"},
		[]string{"alpha", "delta", "gamma"},
	)

	assert.Equal(t, []string{"delta"}, added)
	assert.Equal(t, []string{"beta"}, removed)

	added, removed = Diff(nil, []string{"alpha"})
	assert.Equal(t, []string{"alpha"}, added)
	assert.Empty(t, removed)
}
