package analysis

import (
	"fmt"
	"testing"

	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/ratingsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stat(id string, rating int, solved bool, tags ...string) models.ContestProblemStat {
	return models.ContestProblemStat{ProblemID: id, ContestID: 1, Index: id, Rating: rating, Solved: solved, Tags: tags, Attempts: 1}
}

func TestBuildStats(t *testing.T) {
	a := models.Problem{ID: "1A", ContestID: 1, Index: "A", Rating: 800}
	b := models.Problem{ID: "1B", ContestID: 1, Index: "B", Rating: 1200}
	c := models.Problem{ID: "2C", ContestID: 2, Index: "C", Rating: 1500}
	subs := []ratingsource.Submission{
		{Problem: b, Verdict: "OK", ParticipantType: "PRACTICE"},
		{Problem: a, Verdict: "WRONG_ANSWER", ParticipantType: "CONTESTANT"},
		{Problem: a, Verdict: "OK", ParticipantType: "CONTESTANT"},
		{Problem: b, Verdict: "WRONG_ANSWER", ParticipantType: "CONTESTANT"},
		{Problem: c, Verdict: "OK", ParticipantType: "PRACTICE"},
	}

	stats := BuildStats("petr", subs)
	require.Len(t, stats, 2, "practice-only problems are not contest stats")

	assert.Equal(t, "1A", stats[0].ProblemID)
	assert.Equal(t, 2, stats[0].Attempts)
	assert.True(t, stats[0].Solved)

	assert.Equal(t, "1B", stats[1].ProblemID)
	assert.False(t, stats[1].Solved)
	assert.True(t, stats[1].SolvedAfterContest)
}

func TestWeakBands(t *testing.T) {
	var stats []models.ContestProblemStat
	// 1600 band: 8 attempts, 6 unsolved -> 0.75
	for i := 0; i < 8; i++ {
		stats = append(stats, stat(fmt.Sprintf("a%d", i), 1600+i, i < 2))
	}
	// 1200 band: 8 attempts, 4 unsolved -> 0.5, not weak
	for i := 0; i < 8; i++ {
		stats = append(stats, stat(fmt.Sprintf("b%d", i), 1250, i < 4))
	}
	// 1900 band: 7 attempts all unsolved, below the attempt threshold
	for i := 0; i < 7; i++ {
		stats = append(stats, stat(fmt.Sprintf("c%d", i), 1900, false))
	}

	bands := WeakBands(stats)
	require.Len(t, bands, 1)
	assert.Equal(t, "1600-1700", bands[0].Band)
	assert.Equal(t, 6, bands[0].Unsolved)
	assert.Equal(t, 0.75, bands[0].UnsolvedRate)
}

func TestWeakTopics(t *testing.T) {
	var stats []models.ContestProblemStat
	for i := 0; i < 6; i++ {
		stats = append(stats, stat(fmt.Sprintf("g%d", i), 1400, i < 2, "graphs"))
	}
	for i := 0; i < 6; i++ {
		stats = append(stats, stat(fmt.Sprintf("m%d", i), 1400, i < 3, "math"))
	}

	topics := WeakTopics(stats)
	require.Len(t, topics, 1)
	assert.Equal(t, "graphs", topics[0].Topic)
	assert.Equal(t, 0.33, topics[0].SolvedRate)
	assert.Equal(t, 4, topics[0].Failed)
}

func TestUpsolveCandidatesScoring(t *testing.T) {
	stats := []models.ContestProblemStat{
		stat("weak-topic", 1500, false, "graphs"),
		stat("weak-both", 1650, false, "graphs"),
		stat("plain", 1400, false, "math"),
		stat("too-hard", 1701, false, "graphs"),
		stat("solved", 1400, true, "graphs"),
		stat("solved-later", 1450, false, "graphs"),
	}
	stats[5].SolvedAfterContest = true

	bands := []models.WeakBand{{Band: "1600-1700"}}
	topics := []models.WeakTopic{{Topic: "graphs"}}

	got := UpsolveCandidates(stats, 1600, bands, topics)
	var ids []string
	for _, c := range got {
		ids = append(ids, c.Problem.ID)
	}
	// weak-both: 1+3+2-1 = 5, weak-topic: 1+3 = 4, plain: 1
	assert.Equal(t, []string{"weak-both", "weak-topic", "plain"}, ids)
	assert.Equal(t, 5, got[0].Score)
	assert.Equal(t, 4, got[1].Score)
	assert.Equal(t, 1, got[2].Score)
	assert.Equal(t, "https://codeforces.com/contest/1/problem/weak-both", got[0].Problem.URL)
}

func TestUpsolveSkipsProblemsSolvedLater(t *testing.T) {
	b := models.Problem{ID: "1B", ContestID: 1, Index: "B", Rating: 1400}
	c := models.Problem{ID: "1C", ContestID: 1, Index: "C", Rating: 1400}
	subs := []ratingsource.Submission{
		{Problem: b, Verdict: "WRONG_ANSWER", ParticipantType: "CONTESTANT"},
		{Problem: c, Verdict: "WRONG_ANSWER", ParticipantType: "CONTESTANT"},
		{Problem: b, Verdict: "OK", ParticipantType: "PRACTICE"},
	}
	stats := BuildStats("petr", subs)

	got := UpsolveCandidates(stats, 1500, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "1C", got[0].Problem.ID)

	MarkSolvedLater(stats, map[string]bool{"1C": true})
	assert.True(t, stats[1].SolvedAfterContest)
	assert.Empty(t, UpsolveCandidates(stats, 1500, nil, nil))
}

func TestUpsolveCandidatesCapped(t *testing.T) {
	var stats []models.ContestProblemStat
	for i := 0; i < 9; i++ {
		stats = append(stats, stat(fmt.Sprintf("p%d", i), 1000+i*10, false))
	}
	got := UpsolveCandidates(stats, 1500, nil, nil)
	require.Len(t, got, MaxUpsolve)
	assert.Equal(t, "p0", got[0].Problem.ID, "ties broken by rating ascending")
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	a := Analyze("petr", 1500, nil)
	assert.NotNil(t, a.WeakBandDetails)
	assert.NotNil(t, a.WeakTopicDetails)
	assert.NotNil(t, a.UpsolveSuggestions)
	assert.Equal(t, 0, a.Summary.TotalAttempted)
	assert.Equal(t, 0.0, a.Summary.OverallSolvedRate)
}
