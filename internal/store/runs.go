package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/thinkscotty/apollo/internal/models"
)

// LogRun records a run and returns its id. A missing id is generated.
func (s *Store) LogRun(ctx context.Context, run models.Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, status, feeds_fetched, new_articles, result_items, invalid_count, error_type, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, run.FeedsFetched, run.NewArticles, run.ResultItems,
		run.InvalidCount, run.ErrorType, run.ErrorMessage, run.DurationMs)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// RecentRuns returns the N most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, status, feeds_fetched, new_articles, result_items, invalid_count,
		       error_type, error_message, duration_ms, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Status, &run.FeedsFetched, &run.NewArticles,
			&run.ResultItems, &run.InvalidCount, &run.ErrorType, &run.ErrorMessage,
			&run.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		run.CreatedAt, _ = parseTime(createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) GetStats(ctx context.Context) (models.Stats, error) {
	var st models.Stats

	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&st.StoredArticles); err != nil {
		return st, fmt.Errorf("count articles: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM invalid_articles`).Scan(&st.InvalidArticles); err != nil {
		return st, fmt.Errorf("count invalid articles: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.TotalRuns); err != nil {
		return st, fmt.Errorf("count runs: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE status = ?`, models.RunStatusFailed).Scan(&st.FailedRuns); err != nil {
		return st, fmt.Errorf("count failed runs: %w", err)
	}

	size, err := s.DatabaseSizeBytes()
	if err != nil {
		return st, fmt.Errorf("database size: %w", err)
	}
	st.DatabaseSizeBytes = size

	return st, nil
}
