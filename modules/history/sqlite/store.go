package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/streamgate/streamgate/internal/history"
)

// timeLayout stores timestamps as sortable UTC strings, matching the text
// comparison used by the expiry index.
const timeLayout = "2006-01-02T15:04:05.000Z"

// historyStore implements history.Store backed by SQLite.
type historyStore struct {
	db *sql.DB
}

// Record implements history.Store.
func (s *historyStore) Record(ctx context.Context, rec history.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO issued_links (token, chat_id, file_name, media_type, file_size, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Token, rec.ChatID, rec.FileName, rec.MediaType, rec.FileSize,
		rec.IssuedAt.UTC().Format(timeLayout),
		rec.ExpiresAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("history: record link: %w", err)
	}
	return nil
}

// Recent implements history.Store.
func (s *historyStore) Recent(ctx context.Context, chatID int64, limit int) ([]history.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT token, chat_id, file_name, media_type, file_size, issued_at, expires_at
		FROM issued_links
		WHERE chat_id = ?
		ORDER BY issued_at DESC
		LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []history.Record
	for rows.Next() {
		var rec history.Record
		var issued, expires string
		if err := rows.Scan(&rec.Token, &rec.ChatID, &rec.FileName, &rec.MediaType, &rec.FileSize, &issued, &expires); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		if rec.IssuedAt, err = time.Parse(timeLayout, issued); err != nil {
			return nil, fmt.Errorf("history: parse issued_at: %w", err)
		}
		if rec.ExpiresAt, err = time.Parse(timeLayout, expires); err != nil {
			return nil, fmt.Errorf("history: parse expires_at: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return recs, nil
}

// PruneExpired implements history.Store.
func (s *historyStore) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM issued_links WHERE expires_at <= ?",
		now.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("history: prune expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune rows affected: %w", err)
	}
	return n, nil
}
