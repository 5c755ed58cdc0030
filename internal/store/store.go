package store

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists the latest clustering result and the history of runs.
type Store struct {
	conn *sql.DB
	path string
}

func New(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// DatabaseSizeBytes returns the file size of the database.
func (s *Store) DatabaseSizeBytes() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func parseTime(v string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", v)
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id           TEXT    PRIMARY KEY,
			position     INTEGER NOT NULL,
			headline     TEXT    NOT NULL DEFAULT '',
			content      TEXT    NOT NULL DEFAULT '',
			url          TEXT    NOT NULL DEFAULT '',
			published_at TEXT,
			abstract     TEXT    NOT NULL DEFAULT '[]',
			created_at   TEXT    NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_position ON articles(position)`,
		`CREATE TABLE IF NOT EXISTS related (
			article_id TEXT    NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			related_id TEXT    NOT NULL,
			PRIMARY KEY (article_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS invalid_articles (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id            TEXT    PRIMARY KEY,
			status        TEXT    NOT NULL,
			feeds_fetched INTEGER NOT NULL DEFAULT 0,
			new_articles  INTEGER NOT NULL DEFAULT 0,
			result_items  INTEGER NOT NULL DEFAULT 0,
			invalid_count INTEGER NOT NULL DEFAULT 0,
			error_type    TEXT    NOT NULL DEFAULT '',
			error_message TEXT    NOT NULL DEFAULT '',
			duration_ms   INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT    NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}
