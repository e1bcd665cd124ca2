package feedback

import (
	"testing"
	"time"

	"github.com/cpcoach/backend/internal/models"
)

func fixedProcessor(t time.Time) *Processor {
	p := NewProcessor(time.UTC)
	p.Now = func() time.Time { return t }
	return p
}

func intPtr(v int) *int { return &v }

func TestApplySolveAccepted(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	p := fixedProcessor(now)
	st := State{
		Profile:   models.UserProfile{Handle: "petr", Rating: 1500, LastOutcome: models.OutcomeWrongAnswer, DailyCount: 2, DailyDate: "2026-03-14"},
		ProblemID: "1900A",
		SkipCount: 1,
	}

	m := p.ApplySolve(st, models.VerdictAccepted, nil)
	if m.Solve == nil {
		t.Fatal("expected solved record")
	}
	if m.Solve.Source != models.SourceManual || m.Solve.AutoSolved {
		t.Errorf("solve = %+v, want manual non-auto", m.Solve)
	}
	if m.Profile.LastOutcome != models.OutcomeAccepted {
		t.Errorf("last outcome = %s, want accepted", m.Profile.LastOutcome)
	}
	if m.Profile.DailyCount != 3 {
		t.Errorf("daily count = %d, want 3", m.Profile.DailyCount)
	}
	if !m.ClearSkip || m.Skip != nil {
		t.Errorf("clearSkip=%v skip=%v, want skip cleared", m.ClearSkip, m.Skip)
	}
	if m.Profile.TotalSolved != 1 {
		t.Errorf("total solved = %d, want 1", m.Profile.TotalSolved)
	}
}

func TestApplySolveWrongAnswer(t *testing.T) {
	p := fixedProcessor(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	st := State{Profile: models.UserProfile{Handle: "petr", LastOutcome: models.OutcomeAccepted, DailyCount: 1, DailyDate: "2026-03-14"}, ProblemID: "1A"}

	m := p.ApplySolve(st, models.VerdictWrongAnswer, nil)
	if m.Solve != nil {
		t.Error("wrong answer must not insert a solved record")
	}
	if m.Profile.LastOutcome != models.OutcomeWrongAnswer {
		t.Errorf("last outcome = %s, want wrong_answer", m.Profile.LastOutcome)
	}
	if m.Profile.DailyCount != 1 {
		t.Errorf("daily count = %d, want unchanged 1", m.Profile.DailyCount)
	}
}

func TestApplySolveAlreadySolvedDoesNotDoubleCount(t *testing.T) {
	p := fixedProcessor(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	st := State{Profile: models.UserProfile{Handle: "petr", DailyCount: 4, DailyDate: "2026-03-14"}, ProblemID: "1A", Solved: true}

	m := p.ApplySolve(st, models.VerdictAccepted, nil)
	if !m.AlreadySolved || m.Solve != nil {
		t.Errorf("alreadySolved=%v solve=%v", m.AlreadySolved, m.Solve)
	}
	if m.Profile.DailyCount != 4 {
		t.Errorf("daily count = %d, want 4", m.Profile.DailyCount)
	}
}

func TestDailyCounterResetsOnNewDay(t *testing.T) {
	tests := []struct {
		name      string
		storedDay string
		stored    int
		now       time.Time
		want      int
	}{
		{"same day", "2026-03-14", 5, time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC), 6},
		{"next day", "2026-03-14", 5, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), 1},
		{"first ever", "", 0, time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), 1},
		// 23:30 in New York is already the next day in UTC
		{"utc boundary", "2026-03-14", 3, time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("EDT", -4*3600)), 1},
	}

	for _, tt := range tests {
		p := fixedProcessor(tt.now)
		st := State{Profile: models.UserProfile{DailyCount: tt.stored, DailyDate: tt.storedDay}, ProblemID: "1A"}
		m := p.ApplySolve(st, models.VerdictAccepted, nil)
		if m.Profile.DailyCount != tt.want {
			t.Errorf("%s: daily count = %d, want %d", tt.name, m.Profile.DailyCount, tt.want)
		}
	}
}

func TestDailyCountRead(t *testing.T) {
	p := fixedProcessor(time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC))
	if got := p.DailyCount(models.UserProfile{DailyCount: 7, DailyDate: "2026-03-14"}); got != 0 {
		t.Errorf("stale day count = %d, want 0", got)
	}
	if got := p.DailyCount(models.UserProfile{DailyCount: 7, DailyDate: "2026-03-15"}); got != 7 {
		t.Errorf("today count = %d, want 7", got)
	}
}

func TestApplySkipFirstThenAutoSolve(t *testing.T) {
	p := fixedProcessor(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	profile := models.UserProfile{Handle: "petr", LastOutcome: models.OutcomeWrongAnswer, TotalSolved: 12}

	first := p.ApplySkip(State{Profile: profile, ProblemID: "1A"}, models.SkipFeedbackNone)
	if first.AutoSolved || first.Solve != nil {
		t.Fatal("first skip must not solve")
	}
	if first.Skip == nil || first.Skip.Count != 1 || first.Skip.SolvesAtSkip != 12 {
		t.Fatalf("skip record = %+v", first.Skip)
	}
	if first.Profile.LastOutcome != models.OutcomeWrongAnswer {
		t.Errorf("plain skip changed last outcome to %s", first.Profile.LastOutcome)
	}

	second := p.ApplySkip(State{Profile: first.Profile, ProblemID: "1A", SkipCount: 1}, models.SkipFeedbackNone)
	if !second.AutoSolved || second.Solve == nil {
		t.Fatal("second skip must auto-solve")
	}
	if !second.Solve.AutoSolved || second.Solve.Source != models.SourceSkip {
		t.Errorf("solve = %+v, want auto skip solve", second.Solve)
	}
	if second.Profile.DailyCount != 1 {
		t.Errorf("daily count = %d, want 1", second.Profile.DailyCount)
	}
	if !second.ClearSkip {
		t.Error("auto-solve should clear the skip record")
	}
}

func TestApplySkipFeedback(t *testing.T) {
	p := fixedProcessor(time.Now())
	base := models.UserProfile{LastOutcome: models.OutcomeNone}

	tests := []struct {
		fb        models.SkipFeedback
		skipCount int
		want      models.Outcome
	}{
		{models.SkipFeedbackTooEasy, 0, models.OutcomeAccepted},
		{models.SkipFeedbackTooHard, 0, models.OutcomeWrongAnswer},
		{models.SkipFeedbackNone, 0, models.OutcomeNone},
		{"", 0, models.OutcomeNone},
		{models.SkipFeedbackTooHard, 1, models.OutcomeWrongAnswer},
		{models.SkipFeedbackTooEasy, 1, models.OutcomeAccepted},
		{models.SkipFeedbackNone, 1, models.OutcomeAccepted},
	}
	for _, tt := range tests {
		m := p.ApplySkip(State{Profile: base, ProblemID: "1A", SkipCount: tt.skipCount}, tt.fb)
		if m.Profile.LastOutcome != tt.want {
			t.Errorf("skip(%q, count=%d) outcome = %s, want %s", tt.fb, tt.skipCount, m.Profile.LastOutcome, tt.want)
		}
	}
}

func TestApplySkipOnSolvedIsNoop(t *testing.T) {
	p := fixedProcessor(time.Now())
	m := p.ApplySkip(State{Profile: models.UserProfile{DailyCount: 2}, ProblemID: "1A", Solved: true, SkipCount: 1}, models.SkipFeedbackTooHard)
	if m.Solve != nil || m.Skip != nil || m.AutoSolved || m.ClearSkip {
		t.Errorf("mutation = %+v, want no-op", m)
	}
	if m.Profile.LastOutcome != "" {
		t.Errorf("last outcome changed to %s", m.Profile.LastOutcome)
	}
}

func TestCooling(t *testing.T) {
	rec := models.SkipRecord{Count: 1, SolvesAtSkip: 5}
	if !Cooling(rec, 14, 10) {
		t.Error("9 solves since skip should still be cooling")
	}
	if Cooling(rec, 15, 10) {
		t.Error("10 solves since skip should release the problem")
	}
	if Cooling(rec, 5, 0) {
		t.Error("cooldown 0 disables cooling")
	}
}

func TestExpectedSeconds(t *testing.T) {
	tests := []struct{ rating, want int }{
		{0, 900},
		{800, 900},
		{850, 900},
		{900, 1200},
		{1600, 3300},
		{3500, 7200},
	}
	for _, tt := range tests {
		if got := ExpectedSeconds(tt.rating); got != tt.want {
			t.Errorf("ExpectedSeconds(%d) = %d, want %d", tt.rating, got, tt.want)
		}
	}
}

func TestSlowSolveAdvisory(t *testing.T) {
	p := fixedProcessor(time.Now())
	st := State{Profile: models.UserProfile{}, ProblemID: "1A", ProblemRating: 800}

	if m := p.ApplySolve(st, models.VerdictAccepted, intPtr(600)); m.Advisory != nil {
		t.Errorf("fast solve got advisory %+v", m.Advisory)
	}
	m := p.ApplySolve(st, models.VerdictAccepted, intPtr(1800))
	if m.Advisory == nil || !m.Advisory.Slow || m.Advisory.ExpectedSeconds != 900 {
		t.Fatalf("advisory = %+v", m.Advisory)
	}
	if m.Solve.ElapsedSeconds == nil || *m.Solve.ElapsedSeconds != 1800 {
		t.Error("elapsed time should be stored on the solved record")
	}
}
