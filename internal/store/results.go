package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thinkscotty/apollo"
)

// SaveResult replaces the stored clustering result with items.
func (s *Store) SaveResult(ctx context.Context, items []apollo.ClusteringResultItem) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM related`); err != nil {
		return fmt.Errorf("clear related: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return fmt.Errorf("clear articles: %w", err)
	}

	articleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (id, position, headline, content, url, published_at, abstract)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer articleStmt.Close()

	relatedStmt, err := tx.PrepareContext(ctx, `INSERT INTO related (article_id, position, related_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer relatedStmt.Close()

	for i, item := range items {
		if item.Article == nil || item.Article.ID == "" {
			return fmt.Errorf("result item %d has no article id", i)
		}
		a := item.Article

		var published sql.NullString
		if a.Date != nil {
			published = sql.NullString{String: a.Date.UTC().Format(time.RFC3339Nano), Valid: true}
		}

		abstract, err := json.Marshal(a.Abstract)
		if err != nil {
			return fmt.Errorf("marshal abstract of %s: %w", a.ID, err)
		}

		if _, err := articleStmt.ExecContext(ctx, a.ID, i, a.Headline, a.Content, a.URL, published, string(abstract)); err != nil {
			return fmt.Errorf("insert article %s: %w", a.ID, err)
		}

		for j, related := range item.Related {
			if _, err := relatedStmt.ExecContext(ctx, a.ID, j, related); err != nil {
				return fmt.Errorf("insert related %s -> %s: %w", a.ID, related, err)
			}
		}
	}

	return tx.Commit()
}

// LoadResult returns the stored clustering result in the order it was saved.
func (s *Store) LoadResult(ctx context.Context) ([]apollo.ClusteringResultItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, headline, content, url, published_at, abstract
		FROM articles ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []apollo.ClusteringResultItem
	index := make(map[string]int)
	for rows.Next() {
		var a apollo.Article
		var published sql.NullString
		var abstract string
		if err := rows.Scan(&a.ID, &a.Headline, &a.Content, &a.URL, &published, &abstract); err != nil {
			return nil, err
		}
		if published.Valid {
			t, err := time.Parse(time.RFC3339Nano, published.String)
			if err != nil {
				return nil, fmt.Errorf("parse date of %s: %w", a.ID, err)
			}
			a.Date = &t
		}
		if err := json.Unmarshal([]byte(abstract), &a.Abstract); err != nil {
			return nil, fmt.Errorf("parse abstract of %s: %w", a.ID, err)
		}

		index[a.ID] = len(items)
		items = append(items, apollo.ClusteringResultItem{Article: &a, Related: []string{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	relRows, err := s.conn.QueryContext(ctx, `SELECT article_id, related_id FROM related ORDER BY article_id, position`)
	if err != nil {
		return nil, err
	}
	defer relRows.Close()

	for relRows.Next() {
		var articleID, relatedID string
		if err := relRows.Scan(&articleID, &relatedID); err != nil {
			return nil, err
		}
		if i, ok := index[articleID]; ok {
			items[i].Related = append(items[i].Related, relatedID)
		}
	}
	return items, relRows.Err()
}

// MarkInvalid records identities the service rejected.
func (s *Store) MarkInvalid(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	stmt, err := s.conn.PrepareContext(ctx, `INSERT OR IGNORE INTO invalid_articles (id) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("mark invalid %s: %w", id, err)
		}
	}
	return nil
}

// InvalidIDs returns every identity recorded by MarkInvalid.
func (s *Store) InvalidIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM invalid_articles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
