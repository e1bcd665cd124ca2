package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cpcoach/backend/internal/models"
	"github.com/lib/pq"
)

// Store persists the problem catalog in Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadAll(ctx context.Context) ([]models.Problem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contest_id, problem_index, name, rating, tags, url FROM problems ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer rows.Close()

	var problems []models.Problem
	for rows.Next() {
		var p models.Problem
		if err := rows.Scan(&p.ID, &p.ContestID, &p.Index, &p.Name, &p.Rating, pq.Array(&p.Tags), &p.URL); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// ReplaceAll upserts every problem and removes the ones no longer present,
// in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, problems []models.Problem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO problems (id, contest_id, problem_index, name, rating, tags, url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			rating = EXCLUDED.rating,
			tags = EXCLUDED.tags,
			url = EXCLUDED.url,
			updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(problems))
	for _, p := range problems {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.ContestID, p.Index, p.Name, p.Rating, pq.Array(tags), p.URL); err != nil {
			return fmt.Errorf("upsert problem %s: %w", p.ID, err)
		}
		ids = append(ids, p.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM problems WHERE NOT (id = ANY($1))`, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune problems: %w", err)
	}

	return tx.Commit()
}
