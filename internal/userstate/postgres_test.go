package userstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cpcoach/backend/internal/feedback"
	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/testinfra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One container serves every case; each case uses its own handle.
func TestPostgresStore(t *testing.T) {
	s := NewPostgresStore(testinfra.Postgres(t))
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	proc := newProcessor(now)
	dp := models.Problem{ID: "1A", Rating: 1600, Tags: []string{"dp", "greedy"}}

	skip := func(st feedback.State) feedback.Mutation { return proc.ApplySkip(st, models.SkipFeedbackNone) }
	solve := func(st feedback.State) feedback.Mutation { return proc.ApplySolve(st, models.VerdictAccepted, nil) }

	newUser := func(t *testing.T, handle string) {
		t.Helper()
		_, err := s.SaveRating(context.Background(), handle, 1500, now)
		require.NoError(t, err)
	}

	t.Run("unknown handle", func(t *testing.T) {
		ctx := context.Background()
		_, err := s.GetProfile(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		_, err = s.ApplyFeedback(ctx, "nobody", dp, func(st feedback.State) feedback.Mutation {
			t.Fatal("mutate func must not run for unknown user")
			return feedback.Mutation{}
		})
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("save rating keeps offset", func(t *testing.T) {
		ctx := context.Background()
		newUser(t, "offset_user")
		_, err := s.SetOffset(ctx, "offset_user", -200)
		require.NoError(t, err)

		p, err := s.SaveRating(ctx, "offset_user", 1650, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1650, p.Rating)
		assert.Equal(t, -200, p.RatingOffset)
		assert.Equal(t, models.OutcomeNone, p.LastOutcome)
	})

	t.Run("double skip auto-solves", func(t *testing.T) {
		ctx := context.Background()
		newUser(t, "skipper")

		m, err := s.ApplyFeedback(ctx, "skipper", dp, skip)
		require.NoError(t, err)
		assert.False(t, m.AutoSolved)
		skips, err := s.SkipRecords(ctx, "skipper")
		require.NoError(t, err)
		require.Len(t, skips, 1)
		assert.Equal(t, 1, skips[0].Count)

		m, err = s.ApplyFeedback(ctx, "skipper", dp, skip)
		require.NoError(t, err)
		assert.True(t, m.AutoSolved)

		ids, err := s.SolvedIDs(ctx, "skipper")
		require.NoError(t, err)
		assert.Equal(t, []string{"1A"}, ids)
		skips, err = s.SkipRecords(ctx, "skipper")
		require.NoError(t, err)
		assert.Empty(t, skips)

		p, err := s.GetProfile(ctx, "skipper")
		require.NoError(t, err)
		assert.Equal(t, 1, p.TotalSolved)
		assert.Equal(t, 1, p.DailyCount)
		assert.Equal(t, "2026-01-02", p.DailyDate)
		assert.Equal(t, models.OutcomeAccepted, p.LastOutcome)

		best, err := s.TopicMaxSolved(ctx, "skipper", "greedy")
		require.NoError(t, err)
		assert.Equal(t, 1600, best)

		// A third skip lands on a solved problem and changes nothing.
		m, err = s.ApplyFeedback(ctx, "skipper", dp, skip)
		require.NoError(t, err)
		assert.True(t, m.AlreadySolved)
		p, err = s.GetProfile(ctx, "skipper")
		require.NoError(t, err)
		assert.Equal(t, 1, p.TotalSolved)
	})

	t.Run("solve is idempotent", func(t *testing.T) {
		ctx := context.Background()
		newUser(t, "solver")

		m, err := s.ApplyFeedback(ctx, "solver", dp, solve)
		require.NoError(t, err)
		assert.False(t, m.AlreadySolved)

		m, err = s.ApplyFeedback(ctx, "solver", dp, solve)
		require.NoError(t, err)
		assert.True(t, m.AlreadySolved)

		p, err := s.GetProfile(ctx, "solver")
		require.NoError(t, err)
		assert.Equal(t, 1, p.TotalSolved)
		assert.Equal(t, 1, p.DailyCount)
	})

	t.Run("conflicting insert rolls back", func(t *testing.T) {
		ctx := context.Background()
		newUser(t, "racer")
		_, err := s.ApplyFeedback(ctx, "racer", dp, solve)
		require.NoError(t, err)

		// A mutation computed from stale state tries to solve again.
		stale := func(st feedback.State) feedback.Mutation {
			st.Solved = false
			return proc.ApplySolve(st, models.VerdictAccepted, nil)
		}
		_, err = s.ApplyFeedback(ctx, "racer", dp, stale)
		assert.ErrorIs(t, err, models.ErrConcurrentMutation)

		p, err := s.GetProfile(ctx, "racer")
		require.NoError(t, err)
		assert.Equal(t, 1, p.TotalSolved, "profile update was rolled back")
	})

	t.Run("concurrent skips auto-solve once", func(t *testing.T) {
		ctx := context.Background()
		newUser(t, "crowd")

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			auto int
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, err := s.ApplyFeedback(ctx, "crowd", dp, skip)
				if !assert.NoError(t, err) {
					return
				}
				if m.AutoSolved {
					mu.Lock()
					auto++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, auto)
		p, err := s.GetProfile(ctx, "crowd")
		require.NoError(t, err)
		assert.Equal(t, 1, p.TotalSolved)
	})

	t.Run("import history", func(t *testing.T) {
		ctx := context.Background()
		newUser(t, "importer")
		_, err := s.ApplyFeedback(ctx, "importer", models.Problem{ID: "2B", Rating: 1200}, skip)
		require.NoError(t, err)
		_, err = s.ApplyFeedback(ctx, "importer", dp, solve)
		require.NoError(t, err)

		solved := []models.Problem{dp, {ID: "2B", Rating: 1200, Tags: []string{"math"}}}
		stats := []models.ContestProblemStat{
			{ProblemID: "3C", ContestID: 3, Index: "C", Name: "Trees", Rating: 1700, Tags: []string{"trees"}, Attempts: 3},
			{ProblemID: "3D", ContestID: 3, Index: "D", Name: "Untagged", Rating: 1900, Attempts: 1},
		}
		n, err := s.ImportHistory(ctx, "importer", solved, now, stats)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "1A was already solved")

		p, err := s.GetProfile(ctx, "importer")
		require.NoError(t, err)
		assert.Equal(t, 2, p.TotalSolved)
		assert.Equal(t, 1, p.DailyCount, "imports do not count toward today")

		skips, err := s.SkipRecords(ctx, "importer")
		require.NoError(t, err)
		assert.Empty(t, skips, "imported solve clears the skip")

		got, err := s.ContestStats(ctx, "importer")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []string{"trees"}, got[0].Tags)
		assert.Equal(t, 3, got[0].Attempts)
		assert.Empty(t, got[1].Tags)

		// Stats are replaced, not appended.
		_, err = s.ImportHistory(ctx, "importer", nil, now, stats[:1])
		require.NoError(t, err)
		got, err = s.ContestStats(ctx, "importer")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
