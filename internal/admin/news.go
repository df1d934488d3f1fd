package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"classtrade/internal/game"
	"classtrade/internal/validate"
)

const newsColumns = `id, class_id, day, title, content, related_stock_ids, created_at, updated_at`

func scanNews(row interface{ Scan(...any) error }) (News, error) {
	var n News
	var related []byte
	err := row.Scan(&n.ID, &n.ClassID, &n.Day, &n.Title, &n.Content, &related, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return n, err
	}
	n.RelatedStockIDs, err = game.DecodeStockIDs(related)
	return n, err
}

// uniqueIDs sorts and de-duplicates ids.
func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) prepareNews(ctx context.Context, q querier, in *NewsInput) ([]byte, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validate.Struct(*in); err != nil {
		return nil, err
	}
	_, total, err := s.classDays(ctx, q, in.ClassID)
	if err != nil {
		return nil, err
	}
	if in.Day > total {
		return nil, validate.Field("day", fmt.Sprintf("day must be between 1 and %d", total))
	}
	in.RelatedStockIDs = uniqueIDs(in.RelatedStockIDs)
	if len(in.RelatedStockIDs) > 0 {
		var found int
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM stocks WHERE id = ANY($1)`, in.RelatedStockIDs).Scan(&found); err != nil {
			return nil, err
		}
		if found != len(in.RelatedStockIDs) {
			return nil, ErrUnknownStock
		}
	}
	return json.Marshal(in.RelatedStockIDs)
}

func (s *Service) CreateNews(ctx context.Context, in NewsInput) (News, error) {
	related, err := s.prepareNews(ctx, s.db, &in)
	if err != nil {
		return News{}, err
	}
	n, err := scanNews(s.db.QueryRow(ctx, `
		INSERT INTO news (class_id, day, title, content, related_stock_ids)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING `+newsColumns, in.ClassID, in.Day, in.Title, in.Content, string(related)))
	return n, writeErr(err, "news")
}

// ListNews lists a class's news; day 0 lists every day.
func (s *Service) ListNews(ctx context.Context, classID int64, day int) ([]News, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+newsColumns+`
		FROM news
		WHERE class_id = $1 AND ($2::int = 0 OR day = $2)
		ORDER BY day, id
	`, classID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []News{}
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Service) UpdateNews(ctx context.Context, id int64, in NewsInput) (News, error) {
	related, err := s.prepareNews(ctx, s.db, &in)
	if err != nil {
		return News{}, err
	}
	n, err := scanNews(s.db.QueryRow(ctx, `
		UPDATE news
		SET day = $3, title = $4, content = $5, related_stock_ids = $6::jsonb, updated_at = now()
		WHERE id = $1 AND class_id = $2
		RETURNING `+newsColumns, id, in.ClassID, in.Day, in.Title, in.Content, string(related)))
	return n, writeErr(err, "news")
}

// DeleteNews removes a news item; prices linked to it keep their value and
// lose the link.
func (s *Service) DeleteNews(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return deleteErr(err, "news")
	}
	if tag.RowsAffected() == 0 {
		return missing("news")
	}
	return nil
}
