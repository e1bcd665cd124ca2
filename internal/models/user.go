package models

import "time"

// Outcome is the result of the user's most recent attempt. It drives the
// next target rating.
type Outcome string

const (
	OutcomeNone        Outcome = "none"
	OutcomeAccepted    Outcome = "accepted"
	OutcomeWrongAnswer Outcome = "wrong_answer"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeNone, OutcomeAccepted, OutcomeWrongAnswer:
		return true
	}
	return false
}

// SkipFeedback is the optional reason attached to a skip.
type SkipFeedback string

const (
	SkipFeedbackNone    SkipFeedback = "none"
	SkipFeedbackTooEasy SkipFeedback = "too_easy"
	SkipFeedbackTooHard SkipFeedback = "too_hard"
)

func (f SkipFeedback) Valid() bool {
	switch f {
	case "", SkipFeedbackNone, SkipFeedbackTooEasy, SkipFeedbackTooHard:
		return true
	}
	return false
}

// Verdict of an explicit mark-solved call.
type Verdict string

const (
	VerdictAccepted    Verdict = "AC"
	VerdictWrongAnswer Verdict = "WA"
)

// SolveSource records how a SolvedRecord came to exist.
type SolveSource string

const (
	SourceManual SolveSource = "manual"
	SourceSkip   SolveSource = "skip"
	SourceSync   SolveSource = "sync"
)

type UserProfile struct {
	Handle          string    `json:"handle"`
	Rating          int       `json:"rating"`
	LastOutcome     Outcome   `json:"last_outcome"`
	RatingOffset    int       `json:"rating_offset"`
	DailyCount      int       `json:"daily_count"`
	DailyDate       string    `json:"daily_date,omitempty"`
	TotalSolved     int       `json:"total_solved"`
	RatingFetchedAt time.Time `json:"rating_fetched_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type SolvedRecord struct {
	Handle         string      `json:"handle"`
	ProblemID      string      `json:"problem_id"`
	SolvedAt       time.Time   `json:"solved_at"`
	ElapsedSeconds *int        `json:"elapsed_seconds,omitempty"`
	AutoSolved     bool        `json:"auto_solved"`
	Source         SolveSource `json:"source"`
}

type SkipRecord struct {
	Handle        string    `json:"handle"`
	ProblemID     string    `json:"problem_id"`
	Count         int       `json:"count"`
	SolvesAtSkip  int       `json:"solves_at_skip"`
	LastSkippedAt time.Time `json:"last_skipped_at"`
}

// TopicSkill is the highest rating the user has solved within a topic.
type TopicSkill struct {
	Handle          string `json:"handle"`
	Topic           string `json:"topic"`
	MaxSolvedRating int    `json:"max_solved_rating"`
	SolvedCount     int    `json:"solved_count"`
}

// ── Auth ─────────────────────────────────────────────────

type ChallengeRequest struct {
	Handle string `json:"handle" validate:"required,cfhandle"`
}

// ChallengeResponse tells the caller which problem to submit a
// compilation error to before ExpiresAt.
type ChallengeResponse struct {
	Challenge    string    `json:"challenge"`
	ProblemID    string    `json:"problem_id"`
	ProblemURL   string    `json:"problem_url"`
	Verdict      string    `json:"verdict"`
	ExpiresAt    time.Time `json:"expires_at"`
	Instructions string    `json:"instructions"`
}

type SessionRequest struct {
	Handle    string `json:"handle" validate:"required,cfhandle"`
	Challenge string `json:"challenge" validate:"required"`
}

type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Profile   UserProfile `json:"profile"`
}
