// Package practice orchestrates recommendations and feedback: it loads
// state, runs the engine and applies feedback under the per-user lock.
package practice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpcoach/backend/internal/analysis"
	"github.com/cpcoach/backend/internal/catalog"
	"github.com/cpcoach/backend/internal/coach"
	"github.com/cpcoach/backend/internal/feedback"
	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/metrics"
	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/ratingsource"
	"github.com/cpcoach/backend/internal/recommend"
	"github.com/cpcoach/backend/internal/userstate"
	"github.com/cpcoach/backend/internal/validation"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options tunes a Service. Zero fields take defaults.
type Options struct {
	Engine       recommend.Engine
	Processor    *feedback.Processor
	Coach        coach.Coach
	StaleAfter   time.Duration
	SkipCooldown int
	Now          func() time.Time
}

type Service struct {
	store        userstate.Store
	catalog      *catalog.Manager
	source       ratingsource.Source
	engine       recommend.Engine
	processor    *feedback.Processor
	coach        coach.Coach
	staleAfter   time.Duration
	skipCooldown int
	now          func() time.Time

	locks   LockTable
	refresh singleflight.Group
}

func NewService(store userstate.Store, cat *catalog.Manager, source ratingsource.Source, opts Options) *Service {
	s := &Service{
		store:        store,
		catalog:      cat,
		source:       source,
		engine:       opts.Engine,
		processor:    opts.Processor,
		coach:        opts.Coach,
		staleAfter:   opts.StaleAfter,
		skipCooldown: opts.SkipCooldown,
		now:          opts.Now,
	}
	if s.processor == nil {
		s.processor = feedback.NewProcessor(time.UTC)
	}
	if s.coach == nil {
		s.coach = coach.TemplateCoach{}
	}
	if s.staleAfter <= 0 {
		s.staleAfter = 6 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func storeErr(op string, err error) error {
	if errors.Is(err, models.ErrUserNotFound) || errors.Is(err, models.ErrConcurrentMutation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStore, err)
}

// ── Users ────────────────────────────────────────────────

// GetOrRefreshUser returns the stored profile, creating it on first sight
// and refreshing the rating once it is older than the staleness window.
// A failed refresh of a known user serves the stale profile.
func (s *Service) GetOrRefreshUser(ctx context.Context, handle string) (*models.UserProfile, error) {
	profile, created, err := s.loadUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	if !created {
		return profile, nil
	}

	if _, err := s.syncSolved(ctx, handle); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("initial history sync failed")
		return profile, nil
	}
	if fresh, err := s.store.GetProfile(ctx, handle); err == nil {
		return fresh, nil
	}
	return profile, nil
}

func (s *Service) loadUser(ctx context.Context, handle string) (*models.UserProfile, bool, error) {
	if err := validation.Handle(handle); err != nil {
		return nil, false, err
	}

	profile, err := s.store.GetProfile(ctx, handle)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		profile = nil
	case err != nil:
		return nil, false, storeErr("load profile", err)
	case s.now().Sub(profile.RatingFetchedAt) < s.staleAfter:
		return profile, false, nil
	}

	v, err, _ := s.refresh.Do(handle, func() (interface{}, error) {
		if profile != nil {
			// Stale profile: a cached answer may be as old as the profile.
			s.invalidateUser(ctx, handle)
		}
		info, err := s.source.UserInfo(ctx, handle)
		if err != nil {
			return nil, err
		}
		saved, err := s.store.SaveRating(ctx, handle, info.Rating, s.now())
		if err != nil {
			return nil, storeErr("save rating", err)
		}
		return *saved, nil
	})
	if err != nil {
		if profile != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("handle", handle).
				Time("fetched_at", profile.RatingFetchedAt).Msg("rating refresh failed, serving stale profile")
			return profile, false, nil
		}
		return nil, false, fmt.Errorf("fetch user %s: %w", handle, err)
	}
	fresh := v.(models.UserProfile)
	return &fresh, profile == nil, nil
}

// SetOffset stores the manual offset, clamped to the allowed range.
func (s *Service) SetOffset(ctx context.Context, handle string, offset int) (*models.OffsetResponse, error) {
	if _, err := s.GetOrRefreshUser(ctx, handle); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(handle)
	defer unlock()

	p, err := s.store.SetOffset(ctx, handle, recommend.ClampOffset(offset))
	if err != nil {
		return nil, storeErr("set offset", err)
	}
	return &models.OffsetResponse{Handle: handle, RatingOffset: p.RatingOffset}, nil
}

// AdjustOffset moves the stored offset by delta, clamped.
func (s *Service) AdjustOffset(ctx context.Context, handle string, delta int) (*models.OffsetResponse, error) {
	if _, err := s.GetOrRefreshUser(ctx, handle); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(handle)
	defer unlock()

	cur, err := s.store.GetProfile(ctx, handle)
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	p, err := s.store.SetOffset(ctx, handle, recommend.ClampOffset(cur.RatingOffset+delta))
	if err != nil {
		return nil, storeErr("set offset", err)
	}
	return &models.OffsetResponse{Handle: handle, RatingOffset: p.RatingOffset}, nil
}

// ── Recommendations ──────────────────────────────────────

// Recommend runs one recommendation cycle for the user and topic.
func (s *Service) Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.GetOrRefreshUser(ctx, req.Handle); err != nil {
		return nil, err
	}
	topic := catalog.NormalizeTag(req.Topic)

	unlock := s.locks.Lock(req.Handle)
	in, err := s.loadInput(ctx, req.Handle, topic)
	unlock()
	if err != nil {
		return nil, err
	}
	in.OffsetOverride = req.OffsetOverride

	res := s.engine.Recommend(in)
	metrics.Recommendations.WithLabelValues(metrics.BoolLabel(res.Fallback), metrics.BoolLabel(res.Empty)).Inc()
	logging.Ctx(ctx).Debug().Str("handle", req.Handle).Str("topic", topic).Int("target", res.Target).
		Int("picks", len(res.Picks)).Bool("fallback", res.Fallback).Msg("recommendation")

	return &models.RecommendResponse{
		Handle:       req.Handle,
		Topic:        topic,
		UserRating:   in.Profile.Rating,
		TargetRating: res.Target,
		Problems:     res.Problems(),
		Fallback:     res.Fallback,
		Message:      res.Message,
		DailyCount:   s.processor.DailyCount(in.Profile),
	}, nil
}

// loadInput reads everything one cycle needs. Callers hold the user's lock.
func (s *Service) loadInput(ctx context.Context, handle, topic string) (recommend.Input, error) {
	in := recommend.Input{
		Problems: s.catalog.Catalog().Snapshot().Problems(),
		Topic:    topic,
	}
	profile, err := s.store.GetProfile(ctx, handle)
	if err != nil {
		return in, storeErr("load profile", err)
	}
	in.Profile = *profile

	solved, err := s.store.SolvedIDs(ctx, handle)
	if err != nil {
		return in, storeErr("load solved", err)
	}
	in.Solved = recommend.NewIDSet(solved...)

	skips, err := s.store.SkipRecords(ctx, handle)
	if err != nil {
		return in, storeErr("load skips", err)
	}
	in.Cooling = recommend.NewIDSet()
	for _, rec := range skips {
		if feedback.Cooling(rec, profile.TotalSolved, s.skipCooldown) {
			in.Cooling.Add(rec.ProblemID)
		}
	}

	if s.engine.TopicFloor {
		if in.TopicMaxSolved, err = s.store.TopicMaxSolved(ctx, handle, topic); err != nil {
			return in, storeErr("load topic skill", err)
		}
	}
	return in, nil
}

// RecommendUpsolve recommends from the user's upsolve list instead of the
// catalog. The list is used in analysis order without re-filtering.
func (s *Service) RecommendUpsolve(ctx context.Context, handle string) (*models.RecommendResponse, error) {
	profile, err := s.GetOrRefreshUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	a, err := s.analyze(ctx, profile)
	if err != nil {
		return nil, err
	}

	target := s.engine.Target(recommend.Input{Profile: *profile})
	res := s.engine.FromUpsolve(a.UpsolveSuggestions, target)
	metrics.Recommendations.WithLabelValues("false", metrics.BoolLabel(res.Empty)).Inc()

	return &models.RecommendResponse{
		Handle:       handle,
		UserRating:   profile.Rating,
		TargetRating: res.Target,
		Problems:     res.Problems(),
		Message:      res.Message,
		DailyCount:   s.processor.DailyCount(*profile),
	}, nil
}

// ── Feedback ─────────────────────────────────────────────

func (s *Service) lookupProblem(id string) (models.Problem, error) {
	p, ok := s.catalog.Catalog().Snapshot().Get(id)
	if !ok {
		return models.Problem{}, fmt.Errorf("problem %s: %w", id, models.ErrProblemNotFound)
	}
	return p, nil
}

// MarkSolved records an explicit solve. A WA verdict only marks the last
// outcome; solving an already solved problem changes nothing else.
func (s *Service) MarkSolved(ctx context.Context, handle, problemID string, verdict models.Verdict, elapsed *int) (*models.SolveResponse, error) {
	if verdict == "" {
		verdict = models.VerdictAccepted
	}
	if _, err := s.GetOrRefreshUser(ctx, handle); err != nil {
		return nil, err
	}
	problem, err := s.lookupProblem(problemID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(handle)
	m, err := s.store.ApplyFeedback(ctx, handle, problem, func(st feedback.State) feedback.Mutation {
		return s.processor.ApplySolve(st, verdict, elapsed)
	})
	unlock()
	if err != nil {
		return nil, storeErr("apply solve", err)
	}

	metrics.FeedbackEvents.WithLabelValues("solve", "false").Inc()
	logging.Ctx(ctx).Info().Str("handle", handle).Str("problem", problemID).Str("verdict", string(verdict)).
		Bool("already_solved", m.AlreadySolved).Int("daily_count", m.Profile.DailyCount).Msg("solve recorded")

	if m.Advisory != nil {
		if tip, err := s.coach.SlowSolveTip(ctx, problem, m.Advisory.ElapsedSeconds, m.Advisory.ExpectedSeconds); err == nil && tip != "" {
			m.Advisory.Message = tip
		}
	}

	return &models.SolveResponse{
		ProblemID:     problemID,
		DailyCount:    s.processor.DailyCount(m.Profile),
		AutoSolved:    false,
		AlreadySolved: m.AlreadySolved,
		LastOutcome:   m.Profile.LastOutcome,
		Advisory:      m.Advisory,
	}, nil
}

// RecordSkip records a skip with optional difficulty feedback. The second
// skip of the same problem marks it solved.
func (s *Service) RecordSkip(ctx context.Context, handle, problemID string, fb models.SkipFeedback) (*models.SkipResponse, error) {
	if fb == "" {
		fb = models.SkipFeedbackNone
	}
	if _, err := s.GetOrRefreshUser(ctx, handle); err != nil {
		return nil, err
	}
	problem, err := s.lookupProblem(problemID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(handle)
	m, err := s.store.ApplyFeedback(ctx, handle, problem, func(st feedback.State) feedback.Mutation {
		return s.processor.ApplySkip(st, fb)
	})
	unlock()
	if err != nil {
		return nil, storeErr("apply skip", err)
	}

	count := 0
	switch {
	case m.Skip != nil:
		count = m.Skip.Count
	case m.AutoSolved:
		count = feedback.AutoSolveSkips
	}

	metrics.FeedbackEvents.WithLabelValues("skip", metrics.BoolLabel(m.AutoSolved)).Inc()
	logging.Ctx(ctx).Info().Str("handle", handle).Str("problem", problemID).Str("feedback", string(fb)).
		Int("skip_count", count).Bool("auto_solved", m.AutoSolved).Msg("skip recorded")

	return &models.SkipResponse{
		ProblemID:   problemID,
		AutoSolved:  m.AutoSolved,
		SkipCount:   count,
		DailyCount:  s.processor.DailyCount(m.Profile),
		LastOutcome: m.Profile.LastOutcome,
	}, nil
}

// ── History & analysis ───────────────────────────────────

// SyncSolved imports the user's accepted submissions and contest history.
func (s *Service) SyncSolved(ctx context.Context, handle string) (*models.SyncResponse, error) {
	if _, _, err := s.loadUser(ctx, handle); err != nil {
		return nil, err
	}
	s.invalidateUser(ctx, handle)
	return s.syncSolved(ctx, handle)
}

// invalidateUser drops any cached user info when the source caches it.
func (s *Service) invalidateUser(ctx context.Context, handle string) {
	if inv, ok := s.source.(interface {
		InvalidateUser(ctx context.Context, handle string)
	}); ok {
		inv.InvalidateUser(ctx, handle)
	}
}

func (s *Service) syncSolved(ctx context.Context, handle string) (*models.SyncResponse, error) {
	var (
		info *ratingsource.UserInfo
		subs []ratingsource.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = s.source.UserInfo(gctx, handle)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.source.Submissions(gctx, handle)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sync %s: %w", handle, err)
	}

	snap := s.catalog.Catalog().Snapshot()
	seen := map[string]bool{}
	var solved []models.Problem
	for i := range subs {
		// Catalog data keeps tags and ratings in line with what the engine sees.
		p, ok := snap.Get(subs[i].Problem.ID)
		if !ok {
			continue
		}
		subs[i].Problem = p
		if subs[i].Accepted() && !seen[p.ID] {
			seen[p.ID] = true
			solved = append(solved, p)
		}
	}
	stats := analysis.BuildStats(handle, subs)

	unlock := s.locks.Lock(handle)
	defer unlock()
	if _, err := s.store.SaveRating(ctx, handle, info.Rating, s.now()); err != nil {
		return nil, storeErr("save rating", err)
	}
	imported, err := s.store.ImportHistory(ctx, handle, solved, s.now(), stats)
	if err != nil {
		return nil, storeErr("import history", err)
	}
	profile, err := s.store.GetProfile(ctx, handle)
	if err != nil {
		return nil, storeErr("load profile", err)
	}

	logging.Ctx(ctx).Info().Str("handle", handle).Int("imported", imported).Int("contest_stats", len(stats)).Msg("history synced")
	return &models.SyncResponse{
		Handle:       handle,
		Imported:     imported,
		ContestStats: len(stats),
		TotalSolved:  profile.TotalSolved,
	}, nil
}

// GetWeaknessAnalysis reports weak bands, weak topics and upsolve picks,
// with optional coaching text.
func (s *Service) GetWeaknessAnalysis(ctx context.Context, handle string) (*models.WeaknessAnalysis, error) {
	profile, err := s.GetOrRefreshUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	a, err := s.analyze(ctx, profile)
	if err != nil {
		return nil, err
	}
	if a.Summary.TotalAttempted > 0 {
		text, err := s.coach.WeaknessCoaching(ctx, a.Summary)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("coaching unavailable")
		}
		a.Coaching = text
	}
	return a, nil
}

func (s *Service) analyze(ctx context.Context, profile *models.UserProfile) (*models.WeaknessAnalysis, error) {
	stats, err := s.store.ContestStats(ctx, profile.Handle)
	if err != nil {
		return nil, storeErr("load contest stats", err)
	}
	solved, err := s.store.SolvedIDs(ctx, profile.Handle)
	if err != nil {
		return nil, storeErr("load solved", err)
	}
	set := make(map[string]bool, len(solved))
	for _, id := range solved {
		set[id] = true
	}
	analysis.MarkSolvedLater(stats, set)
	a := analysis.Analyze(profile.Handle, profile.Rating, stats)
	return &a, nil
}

// ── Catalog ──────────────────────────────────────────────

func (s *Service) RefreshCatalog(ctx context.Context) (*models.CatalogRefreshResponse, error) {
	n, err := s.catalog.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return &models.CatalogRefreshResponse{
		Problems: n,
		Message:  fmt.Sprintf("Refreshed %d problems.", n),
	}, nil
}

func (s *Service) Topics() models.TopicsResponse {
	topics := s.catalog.Catalog().Snapshot().Topics()
	if topics == nil {
		topics = []models.TopicCount{}
	}
	return models.TopicsResponse{Topics: topics}
}
