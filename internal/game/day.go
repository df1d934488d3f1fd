package game

import (
	"context"
	"errors"
	"sort"

	"classtrade/internal/metrics"

	"github.com/jackc/pgx/v5"
)

// AdvanceState is what a day advance is checked against.
type AdvanceState struct {
	CurrentDay int
	TotalDays  int
	NewsCount  int
	// Universe holds every listed stock; stocks are shared by all classes.
	Universe []int64
	// Priced holds the stocks priced on CurrentDay.
	Priced map[int64]bool
}

// CheckAdvance reports the first precondition a day advance would violate.
func CheckAdvance(st AdvanceState) error {
	if st.CurrentDay >= st.TotalDays {
		return ErrLastDay
	}
	if st.NewsCount == 0 {
		return ErrNoNewsForDay
	}
	if len(st.Universe) == 0 {
		return ErrNoStocks
	}
	var missing []int64
	for _, id := range st.Universe {
		if !st.Priced[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return &MissingPricesError{Day: st.CurrentDay, StockIDs: missing}
	}
	return nil
}

// AdvanceDay moves the class to the next day and pays every guest the daily
// benefit for it. Nothing is written unless every precondition holds.
func (s *Service) AdvanceDay(ctx context.Context, classID int64) (out DayChange, err error) {
	defer func() {
		if err == nil {
			metrics.DayChanges.WithLabelValues("advance").Inc()
		}
	}()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	class, err := loadClass(ctx, tx, classID, " FOR UPDATE")
	if err != nil {
		return out, err
	}
	if class.Status == StatusEnded {
		return out, ErrClassEnded
	}
	st := AdvanceState{
		CurrentDay: class.CurrentDay,
		TotalDays:  class.TotalDays,
		Priced:     map[int64]bool{},
	}
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM news WHERE class_id = $1 AND day = $2
	`, classID, class.CurrentDay).Scan(&st.NewsCount); err != nil {
		return out, err
	}

	rows, err := tx.Query(ctx, `
		SELECT s.id, p.stock_id IS NOT NULL
		FROM stocks s
		LEFT JOIN class_stock_prices p
			ON p.stock_id = s.id AND p.class_id = $1 AND p.day = $2
		ORDER BY s.id
	`, classID, class.CurrentDay)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var stockID int64
		var priced bool
		if err := rows.Scan(&stockID, &priced); err != nil {
			rows.Close()
			return out, err
		}
		st.Universe = append(st.Universe, stockID)
		st.Priced[stockID] = priced
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	if err := CheckAdvance(st); err != nil {
		return out, err
	}

	next := class.CurrentDay + 1
	out = DayChange{
		ClassID:     classID,
		PreviousDay: class.CurrentDay,
		CurrentDay:  next,
		BenefitEach: class.DailyBenefit,
	}
	if class.DailyBenefit > 0 {
		tag, err := tx.Exec(ctx, `
			INSERT INTO transactions (wallet_id, class_id, type, sub_type, quantity, price, day)
			SELECT w.id, g.class_id, 'DEPOSIT', 'BENEFIT', 1, $2, $3
			FROM guests g
			JOIN wallets w ON w.guest_id = g.id
			WHERE g.class_id = $1
		`, classID, class.DailyBenefit, next)
		if err != nil {
			return out, err
		}
		out.BenefitsPaid = tag.RowsAffected()
		if _, err := tx.Exec(ctx, `
			UPDATE wallets w
			SET balance = w.balance + $2, updated_at = now()
			FROM guests g
			WHERE g.id = w.guest_id AND g.class_id = $1
		`, classID, class.DailyBenefit); err != nil {
			return out, err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE classes SET current_day = $2, updated_at = now() WHERE id = $1
	`, classID, next); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	s.InvalidateClass(ctx, classID)
	s.log.Info("class day advanced",
		"class_id", classID,
		"day", next,
		"benefits_paid", out.BenefitsPaid,
		"benefit_each", class.DailyBenefit,
	)
	return out, nil
}

// RewindDay steps the class back one day. Benefits already paid stay paid.
func (s *Service) RewindDay(ctx context.Context, classID int64) (DayChange, error) {
	var out DayChange
	var prev int
	err := s.db.QueryRow(ctx, `
		UPDATE classes
		SET current_day = current_day - 1, updated_at = now()
		WHERE id = $1 AND current_day > 1
		RETURNING current_day
	`, classID).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, cerr := s.Class(ctx, classID); cerr != nil {
			return out, cerr
		}
		return out, ErrFirstDay
	}
	if err != nil {
		return out, err
	}
	metrics.DayChanges.WithLabelValues("rewind").Inc()
	s.InvalidateClass(ctx, classID)
	s.log.Info("class day rewound", "class_id", classID, "day", prev)
	return DayChange{ClassID: classID, PreviousDay: prev + 1, CurrentDay: prev}, nil
}
