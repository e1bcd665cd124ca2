// Package userstate owns per-user profiles, solved records, skip records
// and topic skills.
package userstate

import (
	"context"
	"time"

	"github.com/cpcoach/backend/internal/feedback"
	"github.com/cpcoach/backend/internal/models"
)

// MutateFunc computes the effect of one feedback event from the current
// state. It must be pure: stores may call it inside a transaction.
type MutateFunc func(feedback.State) feedback.Mutation

type Store interface {
	// GetProfile returns models.ErrUserNotFound when the handle is unknown.
	GetProfile(ctx context.Context, handle string) (*models.UserProfile, error)
	// SaveRating creates the profile if needed and records a fresh rating.
	SaveRating(ctx context.Context, handle string, rating int, fetchedAt time.Time) (*models.UserProfile, error)
	SetOffset(ctx context.Context, handle string, offset int) (*models.UserProfile, error)

	SolvedIDs(ctx context.Context, handle string) ([]string, error)
	SkipRecords(ctx context.Context, handle string) ([]models.SkipRecord, error)
	TopicMaxSolved(ctx context.Context, handle, topic string) (int, error)

	// ApplyFeedback loads the state for (handle, problem), runs fn and
	// persists the resulting mutation atomically.
	ApplyFeedback(ctx context.Context, handle string, problem models.Problem, fn MutateFunc) (feedback.Mutation, error)

	// ImportHistory records solves pulled from the rating source without
	// touching the daily counter, and replaces the contest stats.
	ImportHistory(ctx context.Context, handle string, solved []models.Problem, at time.Time, stats []models.ContestProblemStat) (int, error)
	ContestStats(ctx context.Context, handle string) ([]models.ContestProblemStat, error)
}
