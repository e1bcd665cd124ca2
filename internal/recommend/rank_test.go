package recommend

import (
	"reflect"
	"testing"

	"github.com/cpcoach/backend/internal/models"
)

func rankedIDs(rs []Ranked) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Problem.ID)
	}
	return out
}

func TestRankOrdersByDistanceThenID(t *testing.T) {
	cands := []models.Problem{
		prob("d", 1700, "dp"),
		prob("c", 1620, "dp"),
		prob("b", 1580, "dp"),
		prob("a", 1620, "dp"),
	}
	got := rankedIDs(Rank(cands, 1600, 10))
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRankTruncates(t *testing.T) {
	cands := []models.Problem{prob("1", 1600), prob("2", 1610), prob("3", 1620), prob("4", 1630)}
	if got := Rank(cands, 1600, 3); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
	if got := Rank(cands, 1600, 0); len(got) != 4 {
		t.Errorf("n=0 len = %d, want all 4", len(got))
	}
}

func TestRankDeterministic(t *testing.T) {
	cands := []models.Problem{
		prob("x", 1500), prob("y", 1700), prob("z", 1500), prob("w", 1600), prob("v", 1700),
	}
	first := Rank(cands, 1600, 5)
	for i := 0; i < 20; i++ {
		if again := Rank(cands, 1600, 5); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: %v != %v", i, rankedIDs(again), rankedIDs(first))
		}
	}
	if cands[0].ID != "x" {
		t.Error("Rank must not reorder its input")
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		rating, target int
		want           string
	}{
		{1600, 1600, "Recommended because its rating (1600) exactly matches your target difficulty (1600)."},
		{1580, 1600, "Recommended because its rating (1580) closely matches your target difficulty (1600)."},
		{1650, 1600, "Recommended because its rating (1650) closely matches your target difficulty (1600)."},
		{1700, 1600, "Recommended because its rating (1700) is near your target difficulty (1600)."},
		{1450, 1600, "Recommended because its rating (1450) is within range of your target difficulty (1600)."},
	}
	for _, tt := range tests {
		got := Explain(models.Problem{Rating: tt.rating}, tt.target, false)
		if got != tt.want {
			t.Errorf("Explain(%d, %d) = %q, want %q", tt.rating, tt.target, got, tt.want)
		}
	}
}

func TestExplainFallbackMentionsWidenedSearch(t *testing.T) {
	got := Explain(models.Problem{Rating: 800}, 2600, true)
	want := "Recommended from a widened search: no unsolved problems were within range of your target difficulty (2600), so this is one of the easiest available at rating 800."
	if got != want {
		t.Errorf("Explain fallback = %q", got)
	}
}
