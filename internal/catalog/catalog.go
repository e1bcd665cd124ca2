package catalog

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cpcoach/backend/internal/models"
)

const (
	codeforcesBase = "https://codeforces.com"
	// Contest IDs at or above this are gym contests.
	gymContestStart = 100000
)

// ProblemURL builds the canonical problem URL.
func ProblemURL(contestID int, index string) string {
	if contestID >= gymContestStart {
		return fmt.Sprintf("%s/gym/%d/problem/%s", codeforcesBase, contestID, index)
	}
	return fmt.Sprintf("%s/contest/%d/problem/%s", codeforcesBase, contestID, index)
}

// ProblemID builds the catalog identifier, e.g. 1900 + "A" = "1900A".
func ProblemID(contestID int, index string) string {
	return fmt.Sprintf("%d%s", contestID, index)
}

// Snapshot is an immutable view of the catalog. Callers must not modify the
// returned slices.
type Snapshot struct {
	problems []models.Problem
	byID     map[string]models.Problem
	topics   []models.TopicCount
	loadedAt time.Time
}

func NewSnapshot(problems []models.Problem, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		problems: make([]models.Problem, 0, len(problems)),
		byID:     make(map[string]models.Problem, len(problems)),
		loadedAt: loadedAt,
	}
	counts := map[string]int{}
	for _, p := range problems {
		if _, dup := s.byID[p.ID]; dup {
			continue
		}
		p.Tags = NormalizeTags(p.Tags)
		s.problems = append(s.problems, p)
		s.byID[p.ID] = p
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	sort.Slice(s.problems, func(i, j int) bool { return s.problems[i].ID < s.problems[j].ID })

	for t, n := range counts {
		s.topics = append(s.topics, models.TopicCount{Topic: t, Problems: n})
	}
	sort.Slice(s.topics, func(i, j int) bool {
		if s.topics[i].Problems != s.topics[j].Problems {
			return s.topics[i].Problems > s.topics[j].Problems
		}
		return s.topics[i].Topic < s.topics[j].Topic
	})
	return s
}

func (s *Snapshot) Problems() []models.Problem { return s.problems }

func (s *Snapshot) Get(id string) (models.Problem, bool) {
	p, ok := s.byID[id]
	return p, ok
}

func (s *Snapshot) Topics() []models.TopicCount { return s.topics }

// Random returns any problem, or false for an empty snapshot.
func (s *Snapshot) Random() (models.Problem, bool) {
	if len(s.problems) == 0 {
		return models.Problem{}, false
	}
	return s.problems[rand.IntN(len(s.problems))], true
}

func (s *Snapshot) Len() int { return len(s.problems) }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// HasTopic reports whether any problem carries the normalized topic.
func (s *Snapshot) HasTopic(topic string) bool {
	for _, t := range s.topics {
		if t.Topic == topic {
			return true
		}
	}
	return false
}

// Catalog publishes snapshots. Readers never block a refresh.
type Catalog struct {
	current atomic.Pointer[Snapshot]
}

func New() *Catalog {
	c := &Catalog{}
	c.current.Store(NewSnapshot(nil, time.Time{}))
	return c
}

func (c *Catalog) Snapshot() *Snapshot { return c.current.Load() }

// Replace swaps in a new set of problems and returns the new snapshot.
func (c *Catalog) Replace(problems []models.Problem) *Snapshot {
	s := NewSnapshot(problems, time.Now())
	c.current.Store(s)
	return s
}
