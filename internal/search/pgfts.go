package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the extracted message text, with
// ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || len(q.WorkspaceIDs) == 0 {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const where = `
		m.workspace_id = ANY($1)
		AND to_tsvector('simple', m.body_text) @@ plainto_tsquery('simple', $2)
	`

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx,
		`SELECT count(*) FROM messages m WHERE `+where, q.WorkspaceIDs, q.Text,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT m.id, m.workspace_id, COALESCE(m.channel_id, ''), COALESCE(m.conversation_id, ''),
			m.member_id, u.name,
			ts_headline('simple', m.body_text, plainto_tsquery('simple', $2), 'MaxFragments=1,MaxWords=30'),
			m.created_at
		FROM messages m
		JOIN members mb ON mb.id = m.member_id
		JOIN users u ON u.id = mb.user_id
		WHERE %s
		ORDER BY ts_rank(to_tsvector('simple', m.body_text), plainto_tsquery('simple', $2)) DESC, m.seq DESC
		LIMIT %d OFFSET %d
	`, where, limit, offset), q.WorkspaceIDs, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var createdAt sql.NullTime
		if err := rows.Scan(&r.MessageID, &r.WorkspaceID, &r.ChannelID, &r.ConversationID, &r.MemberID, &r.Author, &r.Snippet, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		if createdAt.Valid {
			r.CreatedAt = createdAt.Time.UnixMilli()
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns all messages for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]MessageRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT m.id, m.workspace_id, COALESCE(m.channel_id, ''), COALESCE(m.conversation_id, ''),
			m.member_id, u.name, m.body_text, m.created_at
		FROM messages m
		JOIN members mb ON mb.id = m.member_id
		JOIN users u ON u.id = mb.user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	records := make([]MessageRecord, 0)
	for rows.Next() {
		var record MessageRecord
		var createdAt sql.NullTime
		if err := rows.Scan(&record.ID, &record.WorkspaceID, &record.ChannelID, &record.ConversationID, &record.MemberID, &record.Author, &record.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message record: %w", err)
		}
		if createdAt.Valid {
			record.CreatedAt = createdAt.Time.UnixMilli()
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message records: %w", err)
	}
	return records, nil
}
