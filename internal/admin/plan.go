package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"classtrade/internal/aigen"

	"github.com/jackc/pgx/v5"
)

type PlanResult struct {
	NewsCreated   int `json:"news_created"`
	PricesWritten int `json:"prices_written"`
}

// PlanSpec builds the generator input for a class over the given stocks.
func (s *Service) PlanSpec(ctx context.Context, classID int64, stockIDs []int64, theme, language string) (aigen.ClassSpec, error) {
	class, err := s.GetClass(ctx, classID)
	if err != nil {
		return aigen.ClassSpec{}, err
	}
	spec := aigen.ClassSpec{
		TotalDays:  class.TotalDays,
		Theme:      theme,
		StartPrice: 10_000,
		Language:   language,
	}
	stockIDs = uniqueIDs(stockIDs)
	rows, err := s.db.Query(ctx, `
		SELECT id, name, sector FROM stocks WHERE id = ANY($1) ORDER BY id
	`, stockIDs)
	if err != nil {
		return spec, err
	}
	defer rows.Close()
	for rows.Next() {
		var ref aigen.StockRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Sector); err != nil {
			return spec, err
		}
		spec.Stocks = append(spec.Stocks, ref)
	}
	if err := rows.Err(); err != nil {
		return spec, err
	}
	if len(spec.Stocks) != len(stockIDs) {
		return spec, ErrUnknownStock
	}
	return spec, nil
}

// ApplyPlan writes a generated plan into a class in one transaction: news
// first, then prices linked to the first news of their day that mentions the
// stock. Existing prices for the same stock and day are overwritten.
func (s *Service) ApplyPlan(ctx context.Context, classID int64, plan aigen.Plan) (PlanResult, error) {
	var out PlanResult
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	if _, _, err := s.classDays(ctx, tx, classID); err != nil {
		return out, err
	}

	links := map[[2]int64]int64{} // (day, stock) -> news id
	for _, n := range plan.News {
		related, err := json.Marshal(uniqueIDs(n.RelatedStockIDs))
		if err != nil {
			return out, err
		}
		var id int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO news (class_id, day, title, content, related_stock_ids)
			VALUES ($1, $2, $3, $4, $5::jsonb)
			RETURNING id
		`, classID, n.Day, n.Title, n.Content, string(related)).Scan(&id); err != nil {
			return out, writeErr(err, "news")
		}
		out.NewsCreated++
		for _, stockID := range n.RelatedStockIDs {
			k := [2]int64{int64(n.Day), stockID}
			if _, ok := links[k]; !ok {
				links[k] = id
			}
		}
	}

	for _, p := range plan.Prices {
		in := PriceInput{ClassID: classID, StockID: p.StockID, Day: p.Day, Price: p.Price}
		if id, ok := links[[2]int64{int64(p.Day), p.StockID}]; ok {
			in.NewsID = &id
		}
		if _, err := s.upsertPrice(ctx, tx, in); err != nil {
			return out, fmt.Errorf("stock %d day %d: %w", p.StockID, p.Day, err)
		}
		out.PricesWritten++
	}

	if err := tx.Commit(ctx); err != nil {
		return out, err
	}
	s.invalidate(ctx, classID)
	s.log.Info("generated plan applied", "class_id", classID, "news", out.NewsCreated, "prices", out.PricesWritten)
	return out, nil
}
