// Package analysis finds weak rating bands and topics in a user's contest
// history and picks problems worth upsolving. Everything here is
// deterministic.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cpcoach/backend/internal/catalog"
	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/ratingsource"
)

const (
	BucketWidth = 100

	MinAttemptsWeakBand  = 8
	WeakBandUnsolvedRate = 0.60

	MinAttemptsWeakTopic = 6
	WeakTopicSolvedRate  = 0.40

	UpsolveRatingBuffer = 100
	MaxUpsolve          = 5
)

// BuildStats folds submissions into one stat per problem the user attempted
// as a live contestant.
func BuildStats(handle string, subs []ratingsource.Submission) []models.ContestProblemStat {
	byID := map[string]*models.ContestProblemStat{}
	var order []string

	// Contest attempts first so later practice solves can be classified.
	for _, s := range subs {
		if !s.InContest() {
			continue
		}
		st, ok := byID[s.Problem.ID]
		if !ok {
			st = &models.ContestProblemStat{
				Handle:    handle,
				ProblemID: s.Problem.ID,
				ContestID: s.Problem.ContestID,
				Index:     s.Problem.Index,
				Name:      s.Problem.Name,
				Rating:    s.Problem.Rating,
				Tags:      s.Problem.Tags,
			}
			byID[s.Problem.ID] = st
			order = append(order, s.Problem.ID)
		}
		st.Attempts++
		if s.Accepted() {
			st.Solved = true
		}
	}
	for _, s := range subs {
		if s.InContest() || !s.Accepted() {
			continue
		}
		if st, ok := byID[s.Problem.ID]; ok && !st.Solved {
			st.SolvedAfterContest = true
		}
	}

	sort.Strings(order)
	out := make([]models.ContestProblemStat, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func bandOf(rating int) (lo, hi int) {
	lo = rating / BucketWidth * BucketWidth
	return lo, lo + BucketWidth
}

func bandKey(rating int) string {
	lo, hi := bandOf(rating)
	return fmt.Sprintf("%d-%d", lo, hi)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// WeakBands returns the rating bands the user most often fails in, worst
// first.
func WeakBands(stats []models.ContestProblemStat) []models.WeakBand {
	type counts struct{ solved, unsolved int }
	buckets := map[int]*counts{}
	for _, st := range stats {
		if st.Rating <= 0 {
			continue
		}
		lo, _ := bandOf(st.Rating)
		c, ok := buckets[lo]
		if !ok {
			c = &counts{}
			buckets[lo] = c
		}
		if st.Solved {
			c.solved++
		} else {
			c.unsolved++
		}
	}

	var out []models.WeakBand
	for lo, c := range buckets {
		total := c.solved + c.unsolved
		if total < MinAttemptsWeakBand {
			continue
		}
		rate := float64(c.unsolved) / float64(total)
		if rate < WeakBandUnsolvedRate {
			continue
		}
		out = append(out, models.WeakBand{
			Band:         fmt.Sprintf("%d-%d", lo, lo+BucketWidth),
			Low:          lo,
			High:         lo + BucketWidth,
			Attempted:    total,
			Solved:       c.solved,
			Unsolved:     c.unsolved,
			UnsolvedRate: round2(rate),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnsolvedRate != out[j].UnsolvedRate {
			return out[i].UnsolvedRate > out[j].UnsolvedRate
		}
		return out[i].Low < out[j].Low
	})
	return out
}

// WeakTopics returns topics with a low contest solve rate, worst first.
func WeakTopics(stats []models.ContestProblemStat) []models.WeakTopic {
	type counts struct{ attempted, solved int }
	topics := map[string]*counts{}
	for _, st := range stats {
		for _, tag := range st.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			c, ok := topics[tag]
			if !ok {
				c = &counts{}
				topics[tag] = c
			}
			c.attempted++
			if st.Solved {
				c.solved++
			}
		}
	}

	var out []models.WeakTopic
	for topic, c := range topics {
		if c.attempted < MinAttemptsWeakTopic {
			continue
		}
		rate := float64(c.solved) / float64(c.attempted)
		if rate >= WeakTopicSolvedRate {
			continue
		}
		out = append(out, models.WeakTopic{
			Topic:      topic,
			Attempted:  c.attempted,
			Solved:     c.solved,
			Failed:     c.attempted - c.solved,
			SolvedRate: round2(rate),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SolvedRate != out[j].SolvedRate {
			return out[i].SolvedRate < out[j].SolvedRate
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// UpsolveCandidates scores contest problems the user has not solved since,
// no harder than userRating+100. Higher scores match more weaknesses.
func UpsolveCandidates(stats []models.ContestProblemStat, userRating int, bands []models.WeakBand, topics []models.WeakTopic) []models.UpsolveCandidate {
	weakBand := map[string]bool{}
	for _, b := range bands {
		weakBand[b.Band] = true
	}
	weakTopic := map[string]bool{}
	for _, t := range topics {
		weakTopic[t.Topic] = true
	}

	var out []models.UpsolveCandidate
	for _, st := range stats {
		if st.Solved || st.SolvedAfterContest {
			continue
		}
		if st.Rating <= 0 || st.Rating > userRating+UpsolveRatingBuffer {
			continue
		}
		score := 1
		var reasons []string

		var matched []string
		for _, tag := range st.Tags {
			if weakTopic[tag] {
				matched = append(matched, tag)
			}
		}
		if len(matched) > 0 {
			score += 3
			reasons = append(reasons, "weak topic: "+strings.Join(matched, ", "))
		}
		if key := bandKey(st.Rating); weakBand[key] {
			score += 2
			reasons = append(reasons, "weak rating band: "+key)
		}
		if st.Rating > userRating {
			score--
		}

		out = append(out, models.UpsolveCandidate{
			Problem: models.Problem{
				ID:        st.ProblemID,
				ContestID: st.ContestID,
				Index:     st.Index,
				Name:      st.Name,
				Rating:    st.Rating,
				Tags:      st.Tags,
				URL:       catalog.ProblemURL(st.ContestID, st.Index),
			},
			Score:    score,
			Reasons:  reasons,
			Attempts: st.Attempts,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Problem.Rating != out[j].Problem.Rating {
			return out[i].Problem.Rating < out[j].Problem.Rating
		}
		return out[i].Problem.ID < out[j].Problem.ID
	})
	if len(out) > MaxUpsolve {
		out = out[:MaxUpsolve]
	}
	return out
}

// MarkSolvedLater flags stats for problems in solved that were not solved
// during the contest. Solves recorded outside the rating source only reach
// the stats this way.
func MarkSolvedLater(stats []models.ContestProblemStat, solved map[string]bool) {
	for i := range stats {
		if !stats[i].Solved && solved[stats[i].ProblemID] {
			stats[i].SolvedAfterContest = true
		}
	}
}

// Analyze runs the full pipeline. Coaching text is left to the caller.
func Analyze(handle string, userRating int, stats []models.ContestProblemStat) models.WeaknessAnalysis {
	bands := WeakBands(stats)
	topics := WeakTopics(stats)
	upsolve := UpsolveCandidates(stats, userRating, bands, topics)

	solved := 0
	for _, st := range stats {
		if st.Solved {
			solved++
		}
	}
	summary := models.WeaknessSummary{
		UserRating:      userRating,
		TotalAttempted:  len(stats),
		TotalSolved:     solved,
		WeakRatingBands: []string{},
		WeakTopics:      []string{},
		UpsolveCount:    len(upsolve),
	}
	if len(stats) > 0 {
		summary.OverallSolvedRate = round2(float64(solved) / float64(len(stats)))
	}
	for i, b := range bands {
		if i == 3 {
			break
		}
		summary.WeakRatingBands = append(summary.WeakRatingBands, b.Band)
	}
	for i, t := range topics {
		if i == 5 {
			break
		}
		summary.WeakTopics = append(summary.WeakTopics, t.Topic)
	}

	if bands == nil {
		bands = []models.WeakBand{}
	}
	if topics == nil {
		topics = []models.WeakTopic{}
	}
	if upsolve == nil {
		upsolve = []models.UpsolveCandidate{}
	}
	return models.WeaknessAnalysis{
		Handle:             handle,
		WeakBandDetails:    bands,
		WeakTopicDetails:   topics,
		UpsolveSuggestions: upsolve,
		Summary:            summary,
	}
}
