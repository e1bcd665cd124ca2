package recommend

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cpcoach/backend/internal/models"
)

func prob(id string, rating int, tags ...string) models.Problem {
	return models.Problem{ID: id, Name: "P" + id, Rating: rating, Tags: tags}
}

func ids(ps []models.Problem) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestFilterCandidatesWindowAndTopic(t *testing.T) {
	problems := []models.Problem{
		prob("1", 1580, "dp"),
		prob("2", 1620, "dp", "greedy"),
		prob("3", 1750, "dp"),
		prob("4", 1751, "dp"),
		prob("5", 1400, "graphs"),
		prob("6", 1449, "dp"),
		prob("7", 1450, "DP"),
	}

	res := FilterCandidates(problems, FilterParams{Topic: "Dp", Window: 150, Target: 1600})
	if res.Fallback || res.Empty {
		t.Fatalf("unexpected fallback=%v empty=%v", res.Fallback, res.Empty)
	}
	want := []string{"1", "2", "3", "7"}
	if got := ids(res.Candidates); !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %v, want %v", got, want)
	}
}

func TestFilterCandidatesTopicIsExactMatch(t *testing.T) {
	problems := []models.Problem{prob("1", 1500, "dp on trees"), prob("2", 1500, "dp")}
	res := FilterCandidates(problems, FilterParams{Topic: "dp", Target: 1500})
	if got := ids(res.Candidates); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("candidates = %v, want [2]", got)
	}
}

func TestFilterCandidatesExcludesSolved(t *testing.T) {
	problems := []models.Problem{prob("1", 1500, "dp"), prob("2", 1510, "dp")}
	res := FilterCandidates(problems, FilterParams{Topic: "dp", Target: 1500, Solved: NewIDSet("1")})
	if got := ids(res.Candidates); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("candidates = %v, want [2]", got)
	}
}

func TestFilterCandidatesIdempotent(t *testing.T) {
	problems := []models.Problem{
		prob("1", 1580, "dp"), prob("2", 1620, "dp"), prob("3", 1900, "dp"), prob("4", 1400, "graphs"),
	}
	params := FilterParams{Topic: "dp", Window: 150, Target: 1600, Solved: NewIDSet("2")}
	first := FilterCandidates(problems, params)
	second := FilterCandidates(first.Candidates, params)
	if !reflect.DeepEqual(ids(first.Candidates), ids(second.Candidates)) {
		t.Errorf("second pass = %v, first pass = %v", ids(second.Candidates), ids(first.Candidates))
	}
}

func TestFilterCandidatesFallback(t *testing.T) {
	problems := []models.Problem{
		prob("9", 1200, "dp"),
		prob("8", 1000, "dp"),
		prob("7", 1000, "dp"),
		prob("6", 800, "dp"),
		prob("5", 900, "graphs"),
	}
	res := FilterCandidates(problems, FilterParams{
		Topic: "dp", Window: 150, Target: 2000, Solved: NewIDSet("6"), FallbackLimit: 2,
	})
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if got := ids(res.Candidates); !reflect.DeepEqual(got, []string{"7", "8"}) {
		t.Errorf("candidates = %v, want [7 8]", got)
	}
	if res.Message != "No problems in target range (1850-2150). Showing easiest available." {
		t.Errorf("message = %q", res.Message)
	}
}

func TestFilterCandidatesFallbackIgnoresCooldown(t *testing.T) {
	problems := []models.Problem{prob("1", 1500, "dp")}
	params := FilterParams{Topic: "dp", Target: 1500, Cooling: NewIDSet("1")}
	res := FilterCandidates(problems, params)
	if !res.Fallback || len(res.Candidates) != 1 {
		t.Errorf("fallback=%v candidates=%v, want cooling problem via fallback", res.Fallback, ids(res.Candidates))
	}
}

func TestFilterCandidatesEmpty(t *testing.T) {
	problems := []models.Problem{prob("1", 1500, "dp"), prob("2", 1500, "graphs")}
	res := FilterCandidates(problems, FilterParams{Topic: "dp", Target: 1500, Solved: NewIDSet("1")})
	if !res.Empty || res.Fallback {
		t.Fatalf("empty=%v fallback=%v, want empty", res.Empty, res.Fallback)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("candidates = %v, want none", ids(res.Candidates))
	}
	if !strings.Contains(res.Message, "dp") {
		t.Errorf("message %q should name the topic", res.Message)
	}
}

func TestFilterCandidatesFallbackRangeFloor(t *testing.T) {
	res := FilterCandidates([]models.Problem{prob("1", 800, "dp")}, FilterParams{Topic: "dp", Target: 100, Window: 150})
	// 800 is outside [0, 250]
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if !strings.Contains(res.Message, "(0-250)") {
		t.Errorf("message = %q, want range (0-250)", res.Message)
	}
}
