package userstate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cpcoach/backend/internal/feedback"
	"github.com/cpcoach/backend/internal/models"
)

type userData struct {
	profile models.UserProfile
	solved  map[string]models.SolvedRecord
	skips   map[string]models.SkipRecord
	skills  map[string]models.TopicSkill
	stats   []models.ContestProblemStat
}

// MemoryStore keeps all state in process. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userData)}
}

func (s *MemoryStore) get(handle string) (*userData, error) {
	u, ok := s.users[handle]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, handle string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return nil, err
	}
	p := u.profile
	return &p, nil
}

func (s *MemoryStore) SaveRating(ctx context.Context, handle string, rating int, fetchedAt time.Time) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[handle]
	if !ok {
		u = &userData{
			profile: models.UserProfile{Handle: handle, LastOutcome: models.OutcomeNone, CreatedAt: fetchedAt},
			solved:  map[string]models.SolvedRecord{},
			skips:   map[string]models.SkipRecord{},
			skills:  map[string]models.TopicSkill{},
		}
		s.users[handle] = u
	}
	u.profile.Rating = rating
	u.profile.RatingFetchedAt = fetchedAt
	u.profile.UpdatedAt = fetchedAt
	p := u.profile
	return &p, nil
}

func (s *MemoryStore) SetOffset(ctx context.Context, handle string, offset int) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return nil, err
	}
	u.profile.RatingOffset = offset
	u.profile.UpdatedAt = time.Now()
	p := u.profile
	return &p, nil
}

func (s *MemoryStore) SolvedIDs(ctx context.Context, handle string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(u.solved))
	for id := range u.solved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) SkipRecords(ctx context.Context, handle string) ([]models.SkipRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return nil, err
	}
	out := make([]models.SkipRecord, 0, len(u.skips))
	for _, r := range u.skips {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProblemID < out[j].ProblemID })
	return out, nil
}

func (s *MemoryStore) TopicMaxSolved(ctx context.Context, handle, topic string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return 0, err
	}
	return u.skills[topic].MaxSolvedRating, nil
}

func (s *MemoryStore) ApplyFeedback(ctx context.Context, handle string, problem models.Problem, fn MutateFunc) (feedback.Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return feedback.Mutation{}, err
	}

	_, solved := u.solved[problem.ID]
	m := fn(feedback.State{
		Profile:       u.profile,
		ProblemID:     problem.ID,
		ProblemRating: problem.Rating,
		ProblemTags:   problem.Tags,
		Solved:        solved,
		SkipCount:     u.skips[problem.ID].Count,
	})

	// Everything below is infallible, so the event applies whole.
	u.profile = m.Profile
	if m.Solve != nil {
		u.solved[problem.ID] = *m.Solve
		for _, tag := range problem.Tags {
			u.addSkill(handle, tag, problem.Rating)
		}
	}
	if m.ClearSkip {
		delete(u.skips, problem.ID)
	}
	if m.Skip != nil {
		u.skips[problem.ID] = *m.Skip
	}
	return m, nil
}

func (u *userData) addSkill(handle, topic string, rating int) {
	sk := u.skills[topic]
	sk.Handle, sk.Topic = handle, topic
	sk.SolvedCount++
	if rating > sk.MaxSolvedRating {
		sk.MaxSolvedRating = rating
	}
	u.skills[topic] = sk
}

func (s *MemoryStore) ImportHistory(ctx context.Context, handle string, solved []models.Problem, at time.Time, stats []models.ContestProblemStat) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, p := range solved {
		if _, ok := u.solved[p.ID]; ok {
			continue
		}
		u.solved[p.ID] = models.SolvedRecord{Handle: handle, ProblemID: p.ID, SolvedAt: at, Source: models.SourceSync}
		delete(u.skips, p.ID)
		for _, tag := range p.Tags {
			u.addSkill(handle, tag, p.Rating)
		}
		imported++
	}
	u.profile.TotalSolved = len(u.solved)
	u.stats = append([]models.ContestProblemStat(nil), stats...)
	return imported, nil
}

func (s *MemoryStore) ContestStats(ctx context.Context, handle string) ([]models.ContestProblemStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(handle)
	if err != nil {
		return nil, err
	}
	return append([]models.ContestProblemStat(nil), u.stats...), nil
}
