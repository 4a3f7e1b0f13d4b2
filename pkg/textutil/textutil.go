package textutil

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases name and drops all whitespace, so "Data Struct"
// and "datastruct" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name contains any of the
// (already normalized) matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

type Match struct {
	Index int
	Score float64
}

// RankNames scores every candidate against query with Jaro-Winkler over
// normalized names, best first. Candidates containing the query outright
// score 1.
func RankNames(query string, candidates []string) []Match {
	q := NormalizeName(query)
	out := make([]Match, len(candidates))
	for i, c := range candidates {
		n := NormalizeName(c)
		score := matchr.JaroWinkler(q, n, true)
		if q != "" && strings.Contains(n, q) {
			score = 1
		}
		out[i] = Match{Index: i, Score: score}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// BestMatch returns the index of the candidate closest to query, or -1 when
// nothing scores at least `threshold`.
func BestMatch(query string, candidates []string, threshold float64) int {
	ranked := RankNames(query, candidates)
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return -1
	}
	return ranked[0].Index
}

var placeholderRegex = regexp.MustCompile(`\{([^{}]+)\}`)

// FormatBlock replaces every "{key}" in str with items[key] in a single
// pass, keys match case-insensitively and unknown keys are left as is.
func FormatBlock(str string, items map[string]string) string {
	lowered := make(map[string]string, len(items))
	for k, v := range items {
		lowered[strings.ToLower(k)] = v
	}
	return placeholderRegex.ReplaceAllStringFunc(str, func(m string) string {
		value, ok := lowered[strings.ToLower(m[1:len(m)-1])]
		if !ok {
			return m
		}
		return value
	})
}

// SplitWords splits on whitespace and commas and drops empty tokens.
func SplitWords(s string) []string {
	words := []string{}
	for _, field := range strings.Fields(s) {
		for _, part := range strings.Split(field, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				words = append(words, part)
			}
		}
	}
	return words
}
