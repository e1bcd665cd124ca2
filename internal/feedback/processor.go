package feedback

import (
	"fmt"
	"time"

	"github.com/cpcoach/backend/internal/models"
)

// AutoSolveSkips is the skip count at which a problem is solved on the
// user's behalf.
const AutoSolveSkips = 2

const dayLayout = "2006-01-02"

// State is the slice of user state one feedback event reads.
type State struct {
	Profile       models.UserProfile
	ProblemID     string
	ProblemRating int
	ProblemTags   []string
	Solved        bool
	SkipCount     int
}

// Mutation is the full effect of one event. A store applies it in a single
// transaction or not at all.
type Mutation struct {
	Profile models.UserProfile
	// Solve is inserted when non-nil.
	Solve *models.SolvedRecord
	// Skip is upserted when non-nil.
	Skip *models.SkipRecord
	// ClearSkip removes the skip record for the problem.
	ClearSkip bool

	AutoSolved    bool
	AlreadySolved bool
	Advisory      *models.Advisory
}

// Processor holds the clock and the fixed timezone that day boundaries
// are computed in.
type Processor struct {
	Location *time.Location
	Now      func() time.Time
}

func NewProcessor(loc *time.Location) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	return &Processor{Location: loc, Now: time.Now}
}

func (p *Processor) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Processor) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// DayKey is the calendar day t falls on in the processor's timezone.
func (p *Processor) DayKey(t time.Time) string {
	return t.In(p.loc()).Format(dayLayout)
}

// DailyCount returns the profile's counter as of now: zero when the last
// recorded solve was on an earlier day.
func (p *Processor) DailyCount(profile models.UserProfile) int {
	if profile.DailyDate != p.DayKey(p.now()) {
		return 0
	}
	return profile.DailyCount
}

// ApplySolve handles an explicit mark-solved.
func (p *Processor) ApplySolve(st State, verdict models.Verdict, elapsed *int) Mutation {
	now := p.now()
	m := Mutation{Profile: st.Profile}
	m.Profile.UpdatedAt = now

	if verdict == models.VerdictWrongAnswer {
		m.Profile.LastOutcome = models.OutcomeWrongAnswer
		return m
	}

	if st.Solved {
		m.AlreadySolved = true
		m.Profile.LastOutcome = models.OutcomeAccepted
		return m
	}

	p.solve(&m, st, now, elapsed, models.SourceManual)
	if elapsed != nil {
		m.Advisory = SlowSolveAdvisory(st.ProblemRating, *elapsed)
	}
	return m
}

// ApplySkip handles a skip. The second skip of the same problem solves it.
func (p *Processor) ApplySkip(st State, fb models.SkipFeedback) Mutation {
	now := p.now()
	m := Mutation{Profile: st.Profile}
	m.Profile.UpdatedAt = now

	if st.Solved {
		m.AlreadySolved = true
		return m
	}

	switch fb {
	case models.SkipFeedbackTooEasy:
		m.Profile.LastOutcome = models.OutcomeAccepted
	case models.SkipFeedbackTooHard:
		m.Profile.LastOutcome = models.OutcomeWrongAnswer
	}

	count := st.SkipCount + 1
	if count >= AutoSolveSkips {
		p.solve(&m, st, now, nil, models.SourceSkip)
		m.AutoSolved = true
		// explicit feedback on the skip wins over the implicit accepted
		if fb == models.SkipFeedbackTooHard {
			m.Profile.LastOutcome = models.OutcomeWrongAnswer
		}
		return m
	}

	m.Skip = &models.SkipRecord{
		Handle:        st.Profile.Handle,
		ProblemID:     st.ProblemID,
		Count:         count,
		SolvesAtSkip:  st.Profile.TotalSolved,
		LastSkippedAt: now,
	}
	return m
}

func (p *Processor) solve(m *Mutation, st State, now time.Time, elapsed *int, src models.SolveSource) {
	day := p.DayKey(now)
	if m.Profile.DailyDate != day {
		m.Profile.DailyCount = 0
		m.Profile.DailyDate = day
	}
	m.Profile.DailyCount++
	m.Profile.TotalSolved++
	m.Profile.LastOutcome = models.OutcomeAccepted

	m.Solve = &models.SolvedRecord{
		Handle:         st.Profile.Handle,
		ProblemID:      st.ProblemID,
		SolvedAt:       now,
		ElapsedSeconds: elapsed,
		AutoSolved:     src == models.SourceSkip,
		Source:         src,
	}
	m.ClearSkip = true
	m.Skip = nil
}

// Cooling reports whether a once-skipped problem is still held back from the
// strict recommendation window.
func Cooling(rec models.SkipRecord, totalSolved, cooldown int) bool {
	if cooldown <= 0 || rec.Count == 0 {
		return false
	}
	return totalSolved-rec.SolvesAtSkip < cooldown
}

// ── Elapsed-time heuristic ───────────────────────────────

const (
	baseExpected   = 15 * time.Minute
	perHundred     = 5 * time.Minute
	maxExpected    = 120 * time.Minute
	baselineRating = 800
)

// ExpectedSeconds is a rough time budget for a problem of the given rating.
func ExpectedSeconds(rating int) int {
	d := baseExpected
	if rating > baselineRating {
		d += time.Duration((rating-baselineRating)/100) * perHundred
	}
	if d > maxExpected {
		d = maxExpected
	}
	return int(d.Seconds())
}

// SlowSolveAdvisory returns nil unless elapsed exceeds the expected time.
func SlowSolveAdvisory(rating, elapsed int) *models.Advisory {
	expected := ExpectedSeconds(rating)
	if elapsed <= expected {
		return nil
	}
	return &models.Advisory{
		Slow:            true,
		ElapsedSeconds:  elapsed,
		ExpectedSeconds: expected,
		Message: fmt.Sprintf("Solved in %d min, over the ~%d min typical at rating %d. Reviewing the editorial may help.",
			elapsed/60, expected/60, rating),
	}
}
