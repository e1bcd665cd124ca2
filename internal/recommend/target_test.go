package recommend

import (
	"testing"

	"github.com/cpcoach/backend/internal/models"
)

func TestComputeTarget(t *testing.T) {
	tests := []struct {
		rating  int
		outcome models.Outcome
		offset  int
		want    int
	}{
		{1500, models.OutcomeAccepted, 0, 1600},
		{1500, models.OutcomeWrongAnswer, 0, 1450},
		{1500, models.OutcomeNone, 0, 1500},
		{1500, models.OutcomeAccepted, 200, 1800},
		{1500, models.OutcomeWrongAnswer, -300, 1150},
		{800, models.OutcomeNone, -500, 300},
		// floor at zero
		{0, models.OutcomeWrongAnswer, 0, 0},
		{30, models.OutcomeWrongAnswer, 0, 0},
		{100, models.OutcomeNone, -500, 0},
		// no upper bound
		{3900, models.OutcomeAccepted, 500, 4500},
	}

	for _, tt := range tests {
		got := ComputeTarget(tt.rating, tt.outcome, tt.offset)
		if got != tt.want {
			t.Errorf("ComputeTarget(%d, %s, %d) = %d, want %d", tt.rating, tt.outcome, tt.offset, got, tt.want)
		}
	}
}

func TestComputeTargetIdentities(t *testing.T) {
	for r := 0; r <= 4000; r += 37 {
		if got := ComputeTarget(r, models.OutcomeAccepted, 0); got != r+100 {
			t.Errorf("accepted at %d = %d, want %d", r, got, r+100)
		}
		if got := ComputeTarget(r, models.OutcomeNone, 0); got != r {
			t.Errorf("none at %d = %d, want %d", r, got, r)
		}
		want := r - 50
		if want < 0 {
			want = 0
		}
		if got := ComputeTarget(r, models.OutcomeWrongAnswer, 0); got != want {
			t.Errorf("wrong_answer at %d = %d, want %d", r, got, want)
		}
	}
}

func TestComputeTargetOffsetComposition(t *testing.T) {
	outcomes := []models.Outcome{models.OutcomeNone, models.OutcomeAccepted, models.OutcomeWrongAnswer}
	for _, o := range outcomes {
		for r := 0; r <= 3000; r += 250 {
			for k := -500; k <= 500; k += 100 {
				// compose on the unclamped base so the floor is applied once
				base := r
				switch o {
				case models.OutcomeAccepted:
					base += 100
				case models.OutcomeWrongAnswer:
					base -= 50
				}
				want := base + k
				if want < 0 {
					want = 0
				}
				if got := ComputeTarget(r, o, k); got != want {
					t.Errorf("ComputeTarget(%d, %s, %d) = %d, want %d", r, o, k, got, want)
				}
				if base >= 0 && want > 0 && ComputeTarget(r, o, k) != ComputeTarget(r, o, 0)+k {
					t.Errorf("offset composition broken at (%d, %s, %d)", r, o, k)
				}
			}
		}
	}
}

func TestApplyTopicFloor(t *testing.T) {
	if got := ApplyTopicFloor(1500, 1700); got != 1700 {
		t.Errorf("ApplyTopicFloor(1500, 1700) = %d, want 1700", got)
	}
	if got := ApplyTopicFloor(1500, 1200); got != 1500 {
		t.Errorf("ApplyTopicFloor(1500, 1200) = %d, want 1500", got)
	}
	if got := ApplyTopicFloor(1500, 0); got != 1500 {
		t.Errorf("ApplyTopicFloor(1500, 0) = %d, want 1500", got)
	}
}

func TestClampOffset(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {300, 300}, {-500, -500}, {600, 500}, {-900, -500},
	}
	for _, tt := range tests {
		if got := ClampOffset(tt.in); got != tt.want {
			t.Errorf("ClampOffset(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
