package models

// ── Recommendation ───────────────────────────────────────

type RecommendRequest struct {
	Handle         string `validate:"required,cfhandle"`
	Topic          string `validate:"required,topic"`
	OffsetOverride *int   `validate:"omitempty,offset"`
}

type RecommendedProblem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rating      int      `json:"rating"`
	Tags        []string `json:"tags"`
	URL         string   `json:"url"`
	Explanation string   `json:"explanation"`
}

type RecommendResponse struct {
	Handle       string               `json:"handle"`
	Topic        string               `json:"topic,omitempty"`
	UserRating   int                  `json:"user_rating"`
	TargetRating int                  `json:"target_rating"`
	Problems     []RecommendedProblem `json:"problems"`
	Fallback     bool                 `json:"fallback"`
	Message      string               `json:"message,omitempty"`
	DailyCount   int                  `json:"daily_count"`
}

// ── Feedback ─────────────────────────────────────────────

type SolveRequest struct {
	Handle         string  `json:"handle" validate:"required,cfhandle"`
	ProblemID      string  `json:"problem_id" validate:"required,max=32"`
	Verdict        Verdict `json:"verdict" validate:"omitempty,oneof=AC WA"`
	ElapsedSeconds *int    `json:"elapsed_seconds,omitempty" validate:"omitempty,min=0"`
}

// Advisory flags a solve that took longer than expected for its rating.
// It never changes state.
type Advisory struct {
	Slow            bool   `json:"slow"`
	ElapsedSeconds  int    `json:"elapsed_seconds"`
	ExpectedSeconds int    `json:"expected_seconds"`
	Message         string `json:"message"`
}

type SolveResponse struct {
	ProblemID     string    `json:"problem_id"`
	DailyCount    int       `json:"daily_count"`
	AutoSolved    bool      `json:"auto_solved"`
	AlreadySolved bool      `json:"already_solved"`
	LastOutcome   Outcome   `json:"last_outcome"`
	Advisory      *Advisory `json:"advisory,omitempty"`
}

type SkipRequest struct {
	Handle    string       `json:"handle" validate:"required,cfhandle"`
	ProblemID string       `json:"problem_id" validate:"required,max=32"`
	Feedback  SkipFeedback `json:"feedback" validate:"omitempty,oneof=none too_easy too_hard"`
}

type SkipResponse struct {
	ProblemID   string  `json:"problem_id"`
	AutoSolved  bool    `json:"auto_solved"`
	SkipCount   int     `json:"skip_count"`
	DailyCount  int     `json:"daily_count"`
	LastOutcome Outcome `json:"last_outcome"`
}

// ── Offset ───────────────────────────────────────────────

type OffsetRequest struct {
	Offset int `json:"offset" validate:"offset"`
}

type OffsetAdjustRequest struct {
	Delta int `json:"delta" validate:"oneof=-100 100"`
}

type OffsetResponse struct {
	Handle       string `json:"handle"`
	RatingOffset int    `json:"rating_offset"`
}

type SyncResponse struct {
	Handle       string `json:"handle"`
	Imported     int    `json:"imported"`
	ContestStats int    `json:"contest_stats"`
	TotalSolved  int    `json:"total_solved"`
}
