package admin

import (
	"context"

	"classtrade/internal/game"
)

const overviewTop = 10

// ClassOverview summarizes a class for the operator dashboard: roster size,
// per-day content coverage, today's trading and the head of the ranking.
func (s *Service) ClassOverview(ctx context.Context, classID int64) (Overview, error) {
	var out Overview
	class, err := s.GetClass(ctx, classID)
	if err != nil {
		return out, err
	}
	out.Class = class

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM guests WHERE class_id = $1`, classID).Scan(&out.GuestCount); err != nil {
		return out, err
	}

	var universe int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM stocks`).Scan(&universe); err != nil {
		return out, err
	}

	newsByDay := map[int]int{}
	rows, err := s.db.Query(ctx, `
		SELECT day, COUNT(*) FROM news WHERE class_id = $1 GROUP BY day
	`, classID)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var day, n int
		if err := rows.Scan(&day, &n); err != nil {
			rows.Close()
			return out, err
		}
		newsByDay[day] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	pricedByDay := map[int]int{}
	rows, err = s.db.Query(ctx, `
		SELECT day, COUNT(*) FROM class_stock_prices WHERE class_id = $1 GROUP BY day
	`, classID)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var day, n int
		if err := rows.Scan(&day, &n); err != nil {
			rows.Close()
			return out, err
		}
		pricedByDay[day] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}
	out.Days = Coverage(class.TotalDays, universe, newsByDay, pricedByDay)

	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(quantity * price), 0)
		FROM transactions
		WHERE class_id = $1 AND day = $2 AND sub_type = 'TRADE'
	`, classID, class.CurrentDay).Scan(&out.TradesToday, &out.VolumeToday); err != nil {
		return out, err
	}

	out.TopRanking = []game.RankingRow{}
	if s.game != nil {
		ranking, err := s.game.Ranking(ctx, classID, class.CurrentDay)
		if err != nil {
			return out, err
		}
		if len(ranking) > overviewTop {
			ranking = ranking[:overviewTop]
		}
		out.TopRanking = ranking
	}
	return out, nil
}

// Coverage lays out news and price counts for days 1..totalDays.
func Coverage(totalDays, universe int, newsByDay, pricedByDay map[int]int) []DayCoverage {
	out := make([]DayCoverage, 0, totalDays)
	for day := 1; day <= totalDays; day++ {
		out = append(out, DayCoverage{
			Day:       day,
			NewsCount: newsByDay[day],
			Priced:    pricedByDay[day],
			Universe:  universe,
		})
	}
	return out
}
