// Package suggest finds near-miss spellings for identifiers typed by a
// user: fieldnames, property names and command keywords.
package suggest

import (
	"fmt"
	"sort"
	"strings"
)

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr := make([]int, lb+1)
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[lb]
}

// Closest returns the candidate nearest to input within maxDist, compared
// case-insensitively. Ties go to the lexically smaller candidate.
func Closest(input string, candidates []string, maxDist int) (string, bool) {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	in := strings.ToLower(input)
	best, bestDist := "", maxDist+1
	for _, c := range sorted {
		if d := Levenshtein(in, strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist <= maxDist
}

// From formats the closest candidate as a hint, or returns "".
func From(input string, candidates []string, maxDist int) string {
	if best, ok := Closest(input, candidates, maxDist); ok && best != input {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}
