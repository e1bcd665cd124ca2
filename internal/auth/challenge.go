package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/ratingsource"
)

const (
	ChallengeTTL     = 15 * time.Minute
	ChallengeVerdict = "COMPILATION_ERROR"
)

// Challenge asks the owner of Handle to submit a compilation error to
// ProblemID between IssuedAt and ExpiresAt.
type Challenge struct {
	Handle    string
	ProblemID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (i *Issuer) IssueChallenge(handle, problemID string) (string, time.Time, error) {
	return i.sign(Claims{Handle: handle, Purpose: purposeChallenge, ProblemID: problemID}, ChallengeTTL)
}

// ParseChallenge verifies a challenge token. Session tokens are rejected.
func (i *Issuer) ParseChallenge(raw string) (Challenge, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return Challenge{}, err
	}
	if claims.Purpose != purposeChallenge || claims.ProblemID == "" {
		return Challenge{}, fmt.Errorf("%w: not a challenge token", models.ErrUnauthorized)
	}
	ch := Challenge{Handle: claims.Handle, ProblemID: claims.ProblemID}
	if claims.IssuedAt != nil {
		ch.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ch.ExpiresAt = claims.ExpiresAt.Time
	}
	return ch, nil
}

// Satisfied reports whether subs contain the compilation error the
// challenge asked for, made inside its window.
func (c Challenge) Satisfied(subs []ratingsource.Submission) bool {
	for _, s := range subs {
		if s.Verdict != ChallengeVerdict || s.Problem.ID != c.ProblemID {
			continue
		}
		if s.CreatedAt.Before(c.IssuedAt) || s.CreatedAt.After(c.ExpiresAt) {
			continue
		}
		return true
	}
	return false
}

func sameHandle(a, b string) bool { return strings.EqualFold(a, b) }
