package catalog

import "strings"

// tagAliases maps the spellings users and the rating source use to one
// canonical tag.
var tagAliases = map[string]string{
	"dynamic programming": "dp",
	"graph":               "graphs",
	"tree":                "trees",
	"binarysearch":        "binary search",
	"ds":                  "data structures",
	"string":              "strings",
	"sorting":             "sortings",
	"bruteforce":          "brute force",
	"constructive":        "constructive algorithms",
	"twopointers":         "two pointers",
	"dfs":                 "dfs and similar",
	"bfs":                 "dfs and similar",
	"bitmask":             "bitmasks",
	"game theory":         "games",
	"probability":         "probabilities",
	"disjoint set union":  "dsu",
	"union find":          "dsu",
	"matrix":              "matrices",
}

// NormalizeTag lower-cases, trims and resolves aliases.
func NormalizeTag(tag string) string {
	t := strings.Join(strings.Fields(strings.ToLower(tag)), " ")
	if canonical, ok := tagAliases[t]; ok {
		return canonical
	}
	return t
}

// NormalizeTags normalizes every tag, dropping empties and duplicates while
// keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		t := NormalizeTag(raw)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
