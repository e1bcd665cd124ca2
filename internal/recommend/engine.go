package recommend

import "github.com/cpcoach/backend/internal/models"

// Engine bundles the tunables of a recommendation cycle. The zero value
// uses the defaults.
type Engine struct {
	Limit      int
	Window     int
	TopicFloor bool
}

// Input is everything one cycle reads. It is supplied fully loaded by the
// caller; the engine performs no I/O.
type Input struct {
	Problems       []models.Problem
	Profile        models.UserProfile
	Topic          string
	OffsetOverride *int
	Solved         IDSet
	Cooling        IDSet
	TopicMaxSolved int
}

type Result struct {
	Target   int
	Picks    []Ranked
	Fallback bool
	Empty    bool
	Message  string
}

func (e Engine) limit() int {
	if e.Limit > 0 {
		return e.Limit
	}
	return DefaultLimit
}

// Target computes the target rating for in.
func (e Engine) Target(in Input) int {
	offset := in.Profile.RatingOffset
	if in.OffsetOverride != nil {
		offset = *in.OffsetOverride
	}
	target := ComputeTarget(in.Profile.Rating, in.Profile.LastOutcome, offset)
	if e.TopicFloor {
		target = ApplyTopicFloor(target, in.TopicMaxSolved)
	}
	return target
}

// Recommend runs target, filter, rank and explain.
func (e Engine) Recommend(in Input) Result {
	target := e.Target(in)
	fr := FilterCandidates(in.Problems, FilterParams{
		Topic:         in.Topic,
		Window:        e.Window,
		Target:        target,
		Solved:        in.Solved,
		Cooling:       in.Cooling,
		FallbackLimit: e.limit(),
	})

	res := Result{Target: target, Fallback: fr.Fallback, Empty: fr.Empty, Message: fr.Message}
	if fr.Empty {
		res.Picks = []Ranked{}
		return res
	}
	if fr.Fallback {
		res.Picks = make([]Ranked, 0, len(fr.Candidates))
		for _, p := range fr.Candidates {
			res.Picks = append(res.Picks, Ranked{
				Problem:     p,
				Distance:    abs(p.Rating - target),
				Explanation: Explain(p, target, true),
			})
		}
		return res
	}
	res.Picks = Rank(fr.Candidates, target, e.limit())
	return res
}

// FromUpsolve turns an analysis upsolve list into picks. The list is used
// as given: no topic, window or solved filtering is applied.
func (e Engine) FromUpsolve(cands []models.UpsolveCandidate, target int) Result {
	res := Result{Target: target, Picks: []Ranked{}}
	for _, c := range cands {
		if len(res.Picks) == e.limit() {
			break
		}
		res.Picks = append(res.Picks, Ranked{
			Problem:     c.Problem,
			Distance:    abs(c.Problem.Rating - target),
			Explanation: ExplainUpsolve(c.Reasons),
		})
	}
	if len(res.Picks) == 0 {
		res.Empty = true
		res.Message = "No upsolve candidates found. Sync your contest history first."
	}
	return res
}

// Problems converts picks to the API shape.
func (r Result) Problems() []models.RecommendedProblem {
	out := make([]models.RecommendedProblem, 0, len(r.Picks))
	for _, p := range r.Picks {
		out = append(out, models.RecommendedProblem{
			ID:          p.Problem.ID,
			Name:        p.Problem.Name,
			Rating:      p.Problem.Rating,
			Tags:        p.Problem.Tags,
			URL:         p.Problem.URL,
			Explanation: p.Explanation,
		})
	}
	return out
}
