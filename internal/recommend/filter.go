package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cpcoach/backend/internal/models"
)

const DefaultWindow = 150

// IDSet is a set of problem IDs.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

type FilterParams struct {
	Topic  string
	Window int
	Target int
	Solved IDSet
	// Cooling holds recently skipped problems. They are kept out of the
	// strict window only; the fallback still considers them.
	Cooling IDSet
	// FallbackLimit caps the easiest-available set. Zero means no cap.
	FallbackLimit int
}

type FilterResult struct {
	Candidates []models.Problem
	Fallback   bool
	// Empty is set when not a single unsolved topic problem exists.
	Empty   bool
	Message string
}

// FilterCandidates keeps topic-matching, unsolved problems rated within
// Window of Target. When that leaves nothing it falls back to the
// lowest-rated unsolved problems of the topic.
func FilterCandidates(problems []models.Problem, p FilterParams) FilterResult {
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	topic := strings.ToLower(strings.TrimSpace(p.Topic))
	lo, hi := p.Target-p.Window, p.Target+p.Window

	var strict, unsolved []models.Problem
	for _, prob := range problems {
		if !hasTagFold(prob, topic) || p.Solved.Has(prob.ID) {
			continue
		}
		unsolved = append(unsolved, prob)
		if prob.Rating < lo || prob.Rating > hi || p.Cooling.Has(prob.ID) {
			continue
		}
		strict = append(strict, prob)
	}

	if len(strict) > 0 {
		return FilterResult{Candidates: strict}
	}
	if len(unsolved) == 0 {
		return FilterResult{
			Empty:   true,
			Message: fmt.Sprintf("No unsolved problems found for topic '%s'.", p.Topic),
		}
	}

	sort.SliceStable(unsolved, func(i, j int) bool {
		if unsolved[i].Rating != unsolved[j].Rating {
			return unsolved[i].Rating < unsolved[j].Rating
		}
		return unsolved[i].ID < unsolved[j].ID
	})
	if p.FallbackLimit > 0 && len(unsolved) > p.FallbackLimit {
		unsolved = unsolved[:p.FallbackLimit]
	}
	if lo < 0 {
		lo = 0
	}
	return FilterResult{
		Candidates: unsolved,
		Fallback:   true,
		Message:    fmt.Sprintf("No problems in target range (%d-%d). Showing easiest available.", lo, hi),
	}
}

func hasTagFold(p models.Problem, topic string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}
