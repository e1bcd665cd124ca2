// Package ratingsource talks to the Codeforces API: user ratings, the
// problem set and submission history.
package ratingsource

import (
	"context"
	"time"

	"github.com/cpcoach/backend/internal/models"
)

type UserInfo struct {
	Handle    string    `json:"handle"`
	Rating    int       `json:"rating"`
	MaxRating int       `json:"max_rating"`
	Rank      string    `json:"rank,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Submission struct {
	ID              int64          `json:"id"`
	ContestID       int            `json:"contest_id"`
	CreatedAt       time.Time      `json:"created_at"`
	Problem         models.Problem `json:"problem"`
	Verdict         string         `json:"verdict"`
	ParticipantType string         `json:"participant_type"`
}

// Accepted reports whether the submission passed all tests.
func (s Submission) Accepted() bool { return s.Verdict == "OK" }

// InContest reports whether the submission was made as a live contestant.
func (s Submission) InContest() bool {
	return s.ParticipantType == "CONTESTANT" || s.ParticipantType == "OUT_OF_COMPETITION"
}

type Source interface {
	// UserInfo returns models.ErrUserNotFound for unknown handles.
	UserInfo(ctx context.Context, handle string) (*UserInfo, error)
	Problems(ctx context.Context) ([]models.Problem, error)
	Submissions(ctx context.Context, handle string) ([]Submission, error)
}
