package storage

import (
	"context"
	"fmt"
)

// Stats returns coarse catalog totals for the stats command and endpoint.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalFigures, totalUsers int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM figures").Scan(&totalFigures); err != nil {
		return nil, fmt.Errorf("counting figures: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&totalUsers); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	stats["total_figures"] = totalFigures
	stats["total_users"] = totalUsers

	perOwner := make(map[string]int)
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username, COUNT(f.id)
		FROM users u LEFT JOIN figures f ON f.owner_id = u.id
		GROUP BY u.id ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("counting figures per user: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var username string
		var count int
		if err := rows.Scan(&username, &count); err != nil {
			return nil, fmt.Errorf("scanning per-user count: %w", err)
		}
		perOwner[username] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats["figures_per_user"] = perOwner

	return stats, nil
}

// Optimize runs PRAGMA optimize, letting SQLite refresh its query planner
// statistics. Called periodically by the scrape scheduler.
func (s *Store) Optimize() error {
	if _, err := s.db.Exec("PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimizing database: %w", err)
	}
	return nil
}

// Analyze recomputes table statistics.
func (s *Store) Analyze() error {
	if _, err := s.db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("analyzing database: %w", err)
	}
	return nil
}

// WALCheckpoint folds the write-ahead log back into the main database file.
func (s *Store) WALCheckpoint() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing WAL: %w", err)
	}
	return nil
}
