package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cpcoach/backend/internal/models"
)

const DefaultLimit = 3

type Ranked struct {
	Problem     models.Problem
	Distance    int
	Explanation string
}

// Rank orders candidates by distance to target, ties by ID, and keeps the
// first n. The input slice is not modified.
func Rank(candidates []models.Problem, target, n int) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, p := range candidates {
		out = append(out, Ranked{Problem: p, Distance: abs(p.Rating - target)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Problem.ID < out[j].Problem.ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Explanation = Explain(out[i].Problem, target, false)
	}
	return out
}

// Explain renders the one-sentence justification shown next to a pick.
func Explain(p models.Problem, target int, fallback bool) string {
	if fallback {
		return fmt.Sprintf("Recommended from a widened search: no unsolved problems were within range of your target difficulty (%d), so this is one of the easiest available at rating %d.", target, p.Rating)
	}
	return fmt.Sprintf("Recommended because its rating (%d) %s your target difficulty (%d).", p.Rating, closeness(abs(p.Rating-target)), target)
}

// ExplainUpsolve renders the justification for a problem taken from the
// upsolve list.
func ExplainUpsolve(reasons []string) string {
	if len(reasons) == 0 {
		return "Recommended for upsolving: you attempted it in a contest without solving it."
	}
	return fmt.Sprintf("Recommended for upsolving: you attempted it in a contest without solving it (%s).", strings.Join(reasons, "; "))
}

func closeness(d int) string {
	switch {
	case d == 0:
		return "exactly matches"
	case d <= 50:
		return "closely matches"
	case d <= 100:
		return "is near"
	default:
		return "is within range of"
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
