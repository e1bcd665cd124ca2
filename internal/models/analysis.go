package models

// ContestProblemStat aggregates a user's contest submissions on one problem.
type ContestProblemStat struct {
	Handle             string   `json:"handle"`
	ProblemID          string   `json:"problem_id"`
	ContestID          int      `json:"contest_id"`
	Index              string   `json:"index"`
	Name               string   `json:"name"`
	Rating             int      `json:"rating"`
	Tags               []string `json:"tags"`
	Attempts           int      `json:"attempts"`
	Solved             bool     `json:"solved"`
	SolvedAfterContest bool     `json:"solved_after_contest"`
}

type WeakBand struct {
	Band         string  `json:"band"`
	Low          int     `json:"low"`
	High         int     `json:"high"`
	Attempted    int     `json:"attempted"`
	Solved       int     `json:"solved"`
	Unsolved     int     `json:"unsolved"`
	UnsolvedRate float64 `json:"unsolved_rate"`
}

type WeakTopic struct {
	Topic      string  `json:"topic"`
	Attempted  int     `json:"attempted"`
	Solved     int     `json:"solved"`
	Failed     int     `json:"failed"`
	SolvedRate float64 `json:"solved_rate"`
}

type UpsolveCandidate struct {
	Problem  Problem  `json:"problem"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
	Attempts int      `json:"attempts"`
}

type WeaknessSummary struct {
	UserRating        int      `json:"user_rating"`
	TotalAttempted    int      `json:"total_attempted"`
	TotalSolved       int      `json:"total_solved"`
	OverallSolvedRate float64  `json:"overall_solved_rate"`
	WeakRatingBands   []string `json:"weak_rating_bands"`
	WeakTopics        []string `json:"weak_topics"`
	UpsolveCount      int      `json:"upsolve_count"`
}

type WeaknessAnalysis struct {
	Handle             string             `json:"handle"`
	WeakBandDetails    []WeakBand         `json:"weak_band_details"`
	WeakTopicDetails   []WeakTopic        `json:"weak_topic_details"`
	UpsolveSuggestions []UpsolveCandidate `json:"upsolve_suggestions"`
	Summary            WeaknessSummary    `json:"summary"`
	Coaching           string             `json:"coaching,omitempty"`
}
