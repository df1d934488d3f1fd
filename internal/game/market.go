package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PriceChange returns the absolute and relative move from prev to cur.
func PriceChange(cur int64, prev *int64) (int64, float64) {
	if prev == nil || *prev == 0 {
		return 0, 0
	}
	change := cur - *prev
	return change, rateFloat(ProfitRate(change, *prev))
}

// ListStocks lists the stocks priced for the class's current day.
func (s *Service) ListStocks(ctx context.Context, classID, guestID int64) ([]StockView, error) {
	class, err := s.Class(ctx, classID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.name, s.sector, s.market_country_code, p.price, prev.price, COALESCE(h.quantity, 0)
		FROM class_stock_prices p
		JOIN stocks s ON s.id = p.stock_id
		LEFT JOIN class_stock_prices prev
		       ON prev.class_id = p.class_id AND prev.stock_id = p.stock_id AND prev.day = p.day - 1
		LEFT JOIN holdings h ON h.stock_id = p.stock_id AND h.guest_id = $3
		WHERE p.class_id = $1 AND p.day = $2
		ORDER BY s.name
	`, classID, class.CurrentDay, guestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StockView{}
	for rows.Next() {
		var v StockView
		if err := rows.Scan(&v.ID, &v.Name, &v.Sector, &v.MarketCountry, &v.Price, &v.PreviousPrice, &v.HeldQuantity); err != nil {
			return nil, err
		}
		v.Change, v.ChangeRate = PriceChange(v.Price, v.PreviousPrice)
		out = append(out, v)
	}
	return out, rows.Err()
}

// StockDetail returns a stock's price series and related news, never beyond
// the class's current day.
func (s *Service) StockDetail(ctx context.Context, classID, stockID int64) (StockDetail, error) {
	var out StockDetail
	class, err := s.Class(ctx, classID)
	if err != nil {
		return out, err
	}
	err = s.db.QueryRow(ctx, `
		SELECT id, name, sector, market_country_code, description
		FROM stocks
		WHERE id = $1
	`, stockID).Scan(&out.ID, &out.Name, &out.Sector, &out.MarketCountry, &out.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrStockNotFound
	}
	if err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT day, price
		FROM class_stock_prices
		WHERE class_id = $1 AND stock_id = $2 AND day <= $3
		ORDER BY day
	`, classID, stockID, class.CurrentDay)
	if err != nil {
		return out, err
	}
	out.Series = []PricePoint{}
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Day, &p.Price); err != nil {
			rows.Close()
			return out, err
		}
		out.Series = append(out.Series, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	out.News, err = queryNews(ctx, s.db, `
		SELECT id, day, title, content, related_stock_ids, created_at
		FROM news
		WHERE class_id = $1 AND day <= $2
			AND (related_stock_ids @> $3::jsonb OR related_stock_ids @> $4::jsonb)
		ORDER BY day DESC, id DESC
	`, append([]any{classID, class.CurrentDay}, relatedFilters(stockID)...)...)
	return out, err
}

// relatedFilters matches a stock id stored either as a number or as a string,
// the two forms DecodeStockIDs accepts.
func relatedFilters(stockID int64) []any {
	return []any{fmt.Sprintf("[%d]", stockID), fmt.Sprintf(`["%d"]`, stockID)}
}

// ListNews lists released news. day 0 means every day up to the current one;
// asking for a future day yields nothing.
func (s *Service) ListNews(ctx context.Context, classID int64, day int) ([]NewsView, error) {
	class, err := s.Class(ctx, classID)
	if err != nil {
		return nil, err
	}
	if day > class.CurrentDay {
		return []NewsView{}, nil
	}
	if day > 0 {
		return queryNews(ctx, s.db, `
			SELECT id, day, title, content, related_stock_ids, created_at
			FROM news
			WHERE class_id = $1 AND day = $2
			ORDER BY id DESC
		`, classID, day)
	}
	return queryNews(ctx, s.db, `
		SELECT id, day, title, content, related_stock_ids, created_at
		FROM news
		WHERE class_id = $1 AND day <= $2
		ORDER BY day DESC, id DESC
	`, classID, class.CurrentDay)
}

func queryNews(ctx context.Context, q querier, sql string, args ...any) ([]NewsView, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []NewsView{}
	for rows.Next() {
		var n NewsView
		var related []byte
		if err := rows.Scan(&n.ID, &n.Day, &n.Title, &n.Content, &related, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.RelatedStockIDs, err = DecodeStockIDs(related)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DecodeStockIDs reads the loosely typed related_stock_ids column. Entries
// that are not positive integers are dropped.
func DecodeStockIDs(raw []byte) ([]int64, error) {
	out := []int64{}
	if len(raw) == 0 {
		return out, nil
	}
	var vals []any
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, fmt.Errorf("decode related stock ids: %w", err)
	}
	for _, v := range vals {
		switch n := v.(type) {
		case float64:
			if n > 0 && n == float64(int64(n)) {
				out = append(out, int64(n))
			}
		case string:
			var id int64
			if _, err := fmt.Sscan(n, &id); err == nil && id > 0 {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// Transactions lists a guest's log rows, newest first.
func (s *Service) Transactions(ctx context.Context, guestID int64, limit int) ([]TransactionView, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.type, t.sub_type, t.stock_id, COALESCE(s.name, ''), t.quantity, t.price, t.day, t.created_at
		FROM transactions t
		JOIN wallets w ON w.id = t.wallet_id
		LEFT JOIN stocks s ON s.id = t.stock_id
		WHERE w.guest_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2
	`, guestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TransactionView{}
	for rows.Next() {
		var v TransactionView
		if err := rows.Scan(&v.ID, &v.Type, &v.SubType, &v.StockID, &v.StockName, &v.Quantity, &v.Price, &v.Day, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Amount = v.Quantity * v.Price
		out = append(out, v)
	}
	return out, rows.Err()
}
