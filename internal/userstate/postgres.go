package userstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cpcoach/backend/internal/feedback"
	"github.com/cpcoach/backend/internal/models"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const profileColumns = `handle, rating, last_outcome, rating_offset, daily_count, daily_date,
	total_solved, rating_fetched_at, created_at, updated_at`

func scanProfile(row *sql.Row) (*models.UserProfile, error) {
	var p models.UserProfile
	var outcome string
	err := row.Scan(&p.Handle, &p.Rating, &outcome, &p.RatingOffset, &p.DailyCount, &p.DailyDate,
		&p.TotalSolved, &p.RatingFetchedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.LastOutcome = models.Outcome(outcome)
	return &p, nil
}

func (s *PostgresStore) getProfile(ctx context.Context, q queryer, handle string, forUpdate bool) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE handle = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanProfile(q.QueryRowContext(ctx, query, handle))
}

func (s *PostgresStore) GetProfile(ctx context.Context, handle string) (*models.UserProfile, error) {
	return s.getProfile(ctx, s.db, handle, false)
}

func (s *PostgresStore) SaveRating(ctx context.Context, handle string, rating int, fetchedAt time.Time) (*models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_profiles (handle, rating, last_outcome, rating_fetched_at, created_at, updated_at)
		VALUES ($1, $2, 'none', $3, $3, $3)
		ON CONFLICT (handle) DO UPDATE SET
			rating = EXCLUDED.rating,
			rating_fetched_at = EXCLUDED.rating_fetched_at,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		handle, rating, fetchedAt)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SetOffset(ctx context.Context, handle string, offset int) (*models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE user_profiles SET rating_offset = $2, updated_at = NOW()
		WHERE handle = $1
		RETURNING `+profileColumns,
		handle, offset)
	return scanProfile(row)
}

func (s *PostgresStore) SolvedIDs(ctx context.Context, handle string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT problem_id FROM solved_records WHERE handle = $1 ORDER BY problem_id`, handle)
	if err != nil {
		return nil, fmt.Errorf("query solved: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan solved: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) SkipRecords(ctx context.Context, handle string) ([]models.SkipRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, problem_id, count, solves_at_skip, last_skipped_at
		FROM skip_records WHERE handle = $1 ORDER BY problem_id`, handle)
	if err != nil {
		return nil, fmt.Errorf("query skips: %w", err)
	}
	defer rows.Close()

	var out []models.SkipRecord
	for rows.Next() {
		var r models.SkipRecord
		if err := rows.Scan(&r.Handle, &r.ProblemID, &r.Count, &r.SolvesAtSkip, &r.LastSkippedAt); err != nil {
			return nil, fmt.Errorf("scan skip: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TopicMaxSolved(ctx context.Context, handle, topic string) (int, error) {
	var max int
	err := s.db.QueryRowContext(ctx,
		`SELECT max_solved_rating FROM user_topic_skills WHERE handle = $1 AND topic = $2`,
		handle, topic).Scan(&max)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get topic skill: %w", err)
	}
	return max, nil
}

// ApplyFeedback locks the profile row for the duration of the event so
// concurrent replicas serialize on the same user.
func (s *PostgresStore) ApplyFeedback(ctx context.Context, handle string, problem models.Problem, fn MutateFunc) (feedback.Mutation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return feedback.Mutation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	profile, err := s.getProfile(ctx, tx, handle, true)
	if err != nil {
		return feedback.Mutation{}, err
	}

	var solved bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM solved_records WHERE handle = $1 AND problem_id = $2)`,
		handle, problem.ID).Scan(&solved); err != nil {
		return feedback.Mutation{}, fmt.Errorf("check solved: %w", err)
	}

	var skipCount int
	err = tx.QueryRowContext(ctx,
		`SELECT count FROM skip_records WHERE handle = $1 AND problem_id = $2`,
		handle, problem.ID).Scan(&skipCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return feedback.Mutation{}, fmt.Errorf("get skip count: %w", err)
	}

	m := fn(feedback.State{
		Profile:       *profile,
		ProblemID:     problem.ID,
		ProblemRating: problem.Rating,
		ProblemTags:   problem.Tags,
		Solved:        solved,
		SkipCount:     skipCount,
	})

	p := m.Profile
	if _, err := tx.ExecContext(ctx, `
		UPDATE user_profiles SET
			last_outcome = $2, daily_count = $3, daily_date = $4, total_solved = $5, updated_at = $6
		WHERE handle = $1`,
		handle, string(p.LastOutcome), p.DailyCount, p.DailyDate, p.TotalSolved, p.UpdatedAt); err != nil {
		return feedback.Mutation{}, fmt.Errorf("update profile: %w", err)
	}

	if m.Solve != nil {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO solved_records (handle, problem_id, solved_at, elapsed_seconds, auto_solved, source)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (handle, problem_id) DO NOTHING`,
			handle, problem.ID, m.Solve.SolvedAt, m.Solve.ElapsedSeconds, m.Solve.AutoSolved, string(m.Solve.Source))
		if err != nil {
			return feedback.Mutation{}, fmt.Errorf("insert solved: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return feedback.Mutation{}, models.ErrConcurrentMutation
		}
		if err := upsertSkills(ctx, tx, handle, problem.Tags, problem.Rating); err != nil {
			return feedback.Mutation{}, err
		}
	}

	if m.ClearSkip {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM skip_records WHERE handle = $1 AND problem_id = $2`, handle, problem.ID); err != nil {
			return feedback.Mutation{}, fmt.Errorf("clear skip: %w", err)
		}
	}

	if m.Skip != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO skip_records (handle, problem_id, count, solves_at_skip, last_skipped_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (handle, problem_id) DO UPDATE SET
				count = EXCLUDED.count,
				solves_at_skip = EXCLUDED.solves_at_skip,
				last_skipped_at = EXCLUDED.last_skipped_at`,
			handle, problem.ID, m.Skip.Count, m.Skip.SolvesAtSkip, m.Skip.LastSkippedAt); err != nil {
			return feedback.Mutation{}, fmt.Errorf("upsert skip: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return feedback.Mutation{}, fmt.Errorf("commit feedback: %w", err)
	}
	return m, nil
}

func upsertSkills(ctx context.Context, tx *sql.Tx, handle string, tags []string, rating int) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_topic_skills (handle, topic, max_solved_rating, solved_count)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (handle, topic) DO UPDATE SET
				max_solved_rating = GREATEST(user_topic_skills.max_solved_rating, EXCLUDED.max_solved_rating),
				solved_count = user_topic_skills.solved_count + 1`,
			handle, tag, rating); err != nil {
			return fmt.Errorf("upsert topic skill: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ImportHistory(ctx context.Context, handle string, solved []models.Problem, at time.Time, stats []models.ContestProblemStat) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getProfile(ctx, tx, handle, true); err != nil {
		return 0, err
	}

	imported := 0
	for _, p := range solved {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO solved_records (handle, problem_id, solved_at, auto_solved, source)
			VALUES ($1, $2, $3, FALSE, 'sync')
			ON CONFLICT (handle, problem_id) DO NOTHING`,
			handle, p.ID, at)
		if err != nil {
			return 0, fmt.Errorf("import solved %s: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		imported++
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM skip_records WHERE handle = $1 AND problem_id = $2`, handle, p.ID); err != nil {
			return 0, fmt.Errorf("clear skip: %w", err)
		}
		if err := upsertSkills(ctx, tx, handle, p.Tags, p.Rating); err != nil {
			return 0, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_profiles
		SET total_solved = (SELECT COUNT(*) FROM solved_records WHERE handle = $1), updated_at = NOW()
		WHERE handle = $1`, handle); err != nil {
		return 0, fmt.Errorf("update total solved: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM contest_problem_stats WHERE handle = $1`, handle); err != nil {
		return 0, fmt.Errorf("clear contest stats: %w", err)
	}
	for _, st := range stats {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contest_problem_stats
				(handle, problem_id, contest_id, problem_index, name, rating, tags, attempts, solved, solved_after_contest)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			handle, st.ProblemID, st.ContestID, st.Index, st.Name, st.Rating, tagArray(st.Tags),
			st.Attempts, st.Solved, st.SolvedAfterContest); err != nil {
			return 0, fmt.Errorf("insert contest stat %s: %w", st.ProblemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return imported, nil
}

// tagArray binds tags as a text[]; a nil slice would bind NULL.
func tagArray(tags []string) interface{} {
	if tags == nil {
		tags = []string{}
	}
	return pq.Array(tags)
}

func (s *PostgresStore) ContestStats(ctx context.Context, handle string) ([]models.ContestProblemStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, problem_id, contest_id, problem_index, name, rating, tags,
			attempts, solved, solved_after_contest
		FROM contest_problem_stats WHERE handle = $1 ORDER BY problem_id`, handle)
	if err != nil {
		return nil, fmt.Errorf("query contest stats: %w", err)
	}
	defer rows.Close()

	var out []models.ContestProblemStat
	for rows.Next() {
		var st models.ContestProblemStat
		if err := rows.Scan(&st.Handle, &st.ProblemID, &st.ContestID, &st.Index, &st.Name, &st.Rating,
			pq.Array(&st.Tags), &st.Attempts, &st.Solved, &st.SolvedAfterContest); err != nil {
			return nil, fmt.Errorf("scan contest stat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
