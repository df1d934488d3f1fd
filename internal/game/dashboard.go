package game

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *Service) Dashboard(ctx context.Context, guestID int64) (Dashboard, error) {
	var out Dashboard
	out.GuestID = guestID

	var walletID *int64
	var balance *int64
	err := s.db.QueryRow(ctx, `
		SELECT g.class_id, c.current_day, c.total_days, w.id, w.balance
		FROM guests g
		JOIN classes c ON c.id = g.class_id
		LEFT JOIN wallets w ON w.guest_id = g.id
		WHERE g.id = $1
	`, guestID).Scan(&out.ClassID, &out.CurrentDay, &out.TotalDays, &walletID, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrGuestNotFound
	}
	if err != nil {
		return out, err
	}
	if walletID == nil {
		return out, ErrWalletNotFound
	}
	out.Balance = *balance

	rows, err := s.db.Query(ctx, `
		SELECT h.stock_id, s.name, h.quantity, h.average_price::text, p.price
		FROM holdings h
		JOIN stocks s ON s.id = h.stock_id
		LEFT JOIN class_stock_prices p
		       ON p.class_id = h.class_id AND p.stock_id = h.stock_id AND p.day = $2
		WHERE h.guest_id = $1
		ORDER BY s.name
	`, guestID, out.CurrentDay)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	holdingsValue := int64(0)
	out.Holdings = []HoldingView{}
	for rows.Next() {
		var stockID int64
		var name, avg string
		var pos Position
		var price *int64
		if err := rows.Scan(&stockID, &name, &pos.Quantity, &avg, &price); err != nil {
			return out, err
		}
		if pos.AveragePrice, err = decimal.NewFromString(avg); err != nil {
			return out, err
		}
		var hv HoldingView
		if price != nil {
			hv = holdingView(stockID, pos, *price, true)
		} else {
			hv = holdingView(stockID, pos, 0, false)
		}
		hv.StockName = name
		holdingsValue += hv.Value
		out.Holdings = append(out.Holdings, hv)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	if err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity * price), 0)
		FROM transactions
		WHERE wallet_id = $1 AND type = 'DEPOSIT' AND sub_type = 'BENEFIT' AND day <= $2
	`, *walletID, out.CurrentDay).Scan(&out.InitialCapital); err != nil {
		return out, err
	}

	var benefit BenefitView
	err = s.db.QueryRow(ctx, `
		SELECT id, quantity * price, day, created_at
		FROM transactions
		WHERE wallet_id = $1 AND type = 'DEPOSIT' AND sub_type = 'BENEFIT' AND day = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, *walletID, out.CurrentDay).Scan(&benefit.TransactionID, &benefit.Amount, &benefit.Day, &benefit.CreatedAt)
	switch {
	case err == nil:
		out.TodayBenefit = &benefit
	case !errors.Is(err, pgx.ErrNoRows):
		return out, err
	}

	out.TotalAssets = out.Balance + holdingsValue
	out.Profit = out.TotalAssets - out.InitialCapital
	out.ProfitRate = rateFloat(ProfitRate(out.Profit, out.InitialCapital))

	ranking, err := s.Ranking(ctx, out.ClassID, out.CurrentDay)
	if err != nil {
		return out, err
	}
	out.RankedGuests = len(ranking)
	if row, ok := RankOf(ranking, guestID); ok {
		out.Rank = row.Rank
	}
	return out, nil
}
