package ratingsource

import (
	"context"
	"time"

	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/metrics"
	"github.com/cpcoach/backend/internal/models"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CachedSource caches user info and the problem set in front of another
// Source. Submissions are always fetched fresh.
type CachedSource struct {
	next        Source
	cache       Cache
	userTTL     time.Duration
	problemsTTL time.Duration
	group       singleflight.Group
	log         zerolog.Logger
}

func NewCachedSource(next Source, cache Cache, userTTL, problemsTTL time.Duration) *CachedSource {
	return &CachedSource{
		next:        next,
		cache:       cache,
		userTTL:     userTTL,
		problemsTTL: problemsTTL,
		log:         logging.WithComponent("ratingsource.cache"),
	}
}

const problemsKey = "problemset"

func userKey(handle string) string { return "user:" + handle }

func (s *CachedSource) UserInfo(ctx context.Context, handle string) (*UserInfo, error) {
	var u UserInfo
	if s.lookup(ctx, "user", userKey(handle), &u) {
		return &u, nil
	}
	v, err, _ := s.group.Do(userKey(handle), func() (interface{}, error) {
		info, err := s.next.UserInfo(ctx, handle)
		if err != nil {
			return nil, err
		}
		s.store(ctx, userKey(handle), info, s.userTTL)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UserInfo), nil
}

// InvalidateUser drops a cached user so the next UserInfo goes upstream.
func (s *CachedSource) InvalidateUser(ctx context.Context, handle string) {
	if err := s.cache.Delete(ctx, userKey(handle)); err != nil {
		s.log.Warn().Err(err).Str("handle", handle).Msg("cache delete failed")
	}
}

func (s *CachedSource) Problems(ctx context.Context) ([]models.Problem, error) {
	var problems []models.Problem
	if s.lookup(ctx, "problems", problemsKey, &problems) {
		return problems, nil
	}
	v, err, _ := s.group.Do(problemsKey, func() (interface{}, error) {
		ps, err := s.next.Problems(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, problemsKey, ps, s.problemsTTL)
		return ps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Problem), nil
}

func (s *CachedSource) Submissions(ctx context.Context, handle string) ([]Submission, error) {
	return s.next.Submissions(ctx, handle)
}

// lookup decodes a cached value into dst. Cache failures count as misses.
func (s *CachedSource) lookup(ctx context.Context, name, key string, dst interface{}) bool {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	}
	if ok && err == nil {
		if err := json.Unmarshal(b, dst); err == nil {
			metrics.CacheLookups.WithLabelValues(name, metrics.CacheResult(true)).Inc()
			return true
		}
	}
	metrics.CacheLookups.WithLabelValues(name, metrics.CacheResult(false)).Inc()
	return false
}

func (s *CachedSource) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, b, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
