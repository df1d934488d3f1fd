package game

import (
	"context"
	"sort"
	"time"

	"classtrade/internal/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// RankingInput is everything ComputeRanking needs, loaded with a fixed number
// of batched queries and keyed by id.
type RankingInput struct {
	Guests   []Guest
	Balances map[int64]int64 // guest id -> wallet balance
	Capital  map[int64]int64 // guest id -> sum of benefit deposits
	Holdings map[int64]map[int64]Position
	Prices   map[int64]int64 // stock id -> price on the ranked day
}

type rankEntry struct {
	row  RankingRow
	rate decimal.Decimal
}

// ComputeRanking orders guests by profit rate descending, then by display
// name in Korean collation order, then by id. Equal rates share a rank and the
// next distinct rate takes the following rank.
func ComputeRanking(in RankingInput) []RankingRow {
	entries := make([]rankEntry, 0, len(in.Guests))
	for _, g := range in.Guests {
		assets := in.Balances[g.ID]
		for stockID, pos := range in.Holdings[g.ID] {
			price, priced := in.Prices[stockID]
			assets += HoldingValue(pos, price, priced)
		}
		capital := in.Capital[g.ID]
		profit := assets - capital
		rate := ProfitRate(profit, capital)
		entries = append(entries, rankEntry{
			row: RankingRow{
				GuestID:        g.ID,
				Nickname:       g.DisplayName(),
				TotalAssets:    assets,
				InitialCapital: capital,
				Profit:         profit,
				ProfitRate:     rateFloat(rate),
			},
			rate: rate,
		})
	}

	col := collate.New(language.Korean)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := a.rate.Cmp(b.rate); c != 0 {
			return c > 0
		}
		if c := col.CompareString(a.row.Nickname, b.row.Nickname); c != 0 {
			return c < 0
		}
		return a.row.GuestID < b.row.GuestID
	})

	out := make([]RankingRow, len(entries))
	rank := 0
	for i, e := range entries {
		if i == 0 || !e.rate.Equal(entries[i-1].rate) {
			rank++
		}
		e.row.Rank = rank
		out[i] = e.row
	}
	return out
}

// Ranking returns the class ranking valued at day's prices, from cache when fresh.
func (s *Service) Ranking(ctx context.Context, classID int64, day int) ([]RankingRow, error) {
	key := rankingKey(classID, day)
	var rows []RankingRow
	hit, err := s.cache.Get(ctx, key, &rows)
	if err != nil {
		s.log.Warn("ranking cache read failed", "key", key, "err", err)
	}
	if hit {
		metrics.RankingCache.WithLabelValues("hit").Inc()
		return rows, nil
	}
	metrics.RankingCache.WithLabelValues("miss").Inc()

	// a trade committing while this ranking is computed bumps the generation
	// and the write below is dropped
	gen, genErr := s.cache.Generation(ctx, classTag(classID))
	start := time.Now()
	in, err := s.loadRankingInput(ctx, classID, day)
	if err != nil {
		return nil, err
	}
	rows = ComputeRanking(in)
	metrics.RankingDuration.Observe(time.Since(start).Seconds())

	if genErr != nil {
		s.log.Warn("ranking cache read failed", "key", key, "err", genErr)
		return rows, nil
	}
	if _, err := s.cache.SetAt(ctx, gen, key, rows, s.rankingTTL, classTag(classID)); err != nil {
		s.log.Warn("ranking cache write failed", "key", key, "err", err)
	}
	return rows, nil
}

func (s *Service) loadRankingInput(ctx context.Context, classID int64, day int) (RankingInput, error) {
	in := RankingInput{
		Balances: map[int64]int64{},
		Capital:  map[int64]int64{},
		Holdings: map[int64]map[int64]Position{},
		Prices:   map[int64]int64{},
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, class_id, name, COALESCE(nickname, ''), school, grade
		FROM guests
		WHERE class_id = $1
	`, classID)
	if err != nil {
		return in, err
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var g Guest
		if err := rows.Scan(&g.ID, &g.ClassID, &g.Name, &g.Nickname, &g.School, &g.Grade); err != nil {
			rows.Close()
			return in, err
		}
		in.Guests = append(in.Guests, g)
		ids = append(ids, g.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return in, err
	}
	if len(ids) == 0 {
		return in, nil
	}

	rows, err = s.db.Query(ctx, `
		SELECT w.guest_id, w.balance, COALESCE(SUM(t.quantity * t.price), 0)
		FROM wallets w
		LEFT JOIN transactions t
		       ON t.wallet_id = w.id AND t.type = 'DEPOSIT' AND t.sub_type = 'BENEFIT' AND t.day <= $2
		WHERE w.guest_id = ANY($1)
		GROUP BY w.guest_id, w.balance
	`, ids, day)
	if err != nil {
		return in, err
	}
	for rows.Next() {
		var guestID, balance, capital int64
		if err := rows.Scan(&guestID, &balance, &capital); err != nil {
			rows.Close()
			return in, err
		}
		in.Balances[guestID] = balance
		in.Capital[guestID] = capital
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return in, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT guest_id, stock_id, quantity, average_price::text
		FROM holdings
		WHERE guest_id = ANY($1)
	`, ids)
	if err != nil {
		return in, err
	}
	for rows.Next() {
		var guestID, stockID int64
		var p Position
		var avg string
		if err := rows.Scan(&guestID, &stockID, &p.Quantity, &avg); err != nil {
			rows.Close()
			return in, err
		}
		if p.AveragePrice, err = decimal.NewFromString(avg); err != nil {
			rows.Close()
			return in, err
		}
		if in.Holdings[guestID] == nil {
			in.Holdings[guestID] = map[int64]Position{}
		}
		in.Holdings[guestID][stockID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return in, err
	}

	prices, err := dayPrices(ctx, s.db, classID, day)
	if err != nil {
		return in, err
	}
	in.Prices = prices
	return in, nil
}

func dayPrices(ctx context.Context, q querier, classID int64, day int) (map[int64]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT stock_id, price
		FROM class_stock_prices
		WHERE class_id = $1 AND day = $2
	`, classID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]int64{}
	for rows.Next() {
		var stockID, price int64
		if err := rows.Scan(&stockID, &price); err != nil {
			return nil, err
		}
		out[stockID] = price
	}
	return out, rows.Err()
}

// RankOf finds a guest's row in a computed ranking.
func RankOf(rows []RankingRow, guestID int64) (RankingRow, bool) {
	for _, r := range rows {
		if r.GuestID == guestID {
			return r, true
		}
	}
	return RankingRow{}, false
}
