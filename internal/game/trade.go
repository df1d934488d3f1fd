package game

import (
	"context"
	"errors"

	"classtrade/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *Service) Buy(ctx context.Context, in TradeInput) (TradeResult, error) {
	return s.trade(ctx, SideBuy, in)
}

func (s *Service) Sell(ctx context.Context, in TradeInput) (TradeResult, error) {
	return s.trade(ctx, SideSell, in)
}

// trade runs wallet check, holding update, transaction log and balance update
// in one transaction. Lock order is class (FOR SHARE, blocks a day change),
// wallet, holding; AdvanceDay also takes the class before any wallet.
func (s *Service) trade(ctx context.Context, side string, in TradeInput) (out TradeResult, err error) {
	defer func() {
		metrics.Trades.WithLabelValues(side, tradeResultLabel(err)).Inc()
	}()
	out.Side = side
	if in.Quantity <= 0 {
		return out, ErrInvalidQuantity
	}
	if in.Price <= 0 {
		return out, ErrInvalidPrice
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	class, err := loadClass(ctx, tx, in.ClassID, " FOR SHARE")
	if err != nil {
		return out, err
	}
	if class.Status != StatusActive {
		return out, ErrClassNotActive
	}
	out.Day = class.CurrentDay

	var walletID, balance int64
	err = tx.QueryRow(ctx, `
		SELECT w.id, w.balance
		FROM wallets w
		JOIN guests g ON g.id = w.guest_id
		WHERE w.guest_id = $1 AND g.class_id = $2
		FOR UPDATE OF w
	`, in.GuestID, in.ClassID).Scan(&walletID, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrWalletNotFound
	}
	if err != nil {
		return out, err
	}

	var dayPrice int64
	err = tx.QueryRow(ctx, `
		SELECT price
		FROM class_stock_prices
		WHERE class_id = $1 AND stock_id = $2 AND day = $3
	`, in.ClassID, in.StockID, class.CurrentDay).Scan(&dayPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrPriceNotFound
	}
	if err != nil {
		return out, err
	}
	if dayPrice != in.Price {
		return out, ErrPriceMismatch
	}

	held, found, err := lockHolding(ctx, tx, in.GuestID, in.StockID)
	if err != nil {
		return out, err
	}

	var plan TradePlan
	txType := TxTypeBuy
	switch side {
	case SideBuy:
		plan, err = PlanBuy(balance, held, in.Quantity, in.Price)
	default:
		txType = TxTypeSell
		plan, err = PlanSell(balance, held, in.Quantity, in.Price)
	}
	if err != nil {
		return out, err
	}

	switch {
	case plan.Remove:
		_, err = tx.Exec(ctx, `DELETE FROM holdings WHERE guest_id = $1 AND stock_id = $2`, in.GuestID, in.StockID)
	case found:
		_, err = tx.Exec(ctx, `
			UPDATE holdings
			SET quantity = $1, average_price = $2::numeric, updated_at = now()
			WHERE guest_id = $3 AND stock_id = $4
		`, plan.Position.Quantity, plan.Position.AveragePrice.StringFixed(2), in.GuestID, in.StockID)
	default:
		_, err = tx.Exec(ctx, `
			INSERT INTO holdings (guest_id, class_id, stock_id, quantity, average_price)
			VALUES ($1, $2, $3, $4, $5::numeric)
		`, in.GuestID, in.ClassID, in.StockID, plan.Position.Quantity, plan.Position.AveragePrice.StringFixed(2))
	}
	if err != nil {
		return out, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (wallet_id, class_id, stock_id, type, sub_type, quantity, price, day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, walletID, in.ClassID, in.StockID, txType, SubTypeTrade, in.Quantity, in.Price, class.CurrentDay).Scan(&out.TransactionID)
	if err != nil {
		return out, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = $1, updated_at = now()
		WHERE id = $2
	`, plan.Balance, walletID); err != nil {
		return out, err
	}

	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	out.Notional = plan.Notional
	out.Balance = plan.Balance
	if !plan.Remove {
		hv := holdingView(in.StockID, plan.Position, in.Price, true)
		out.Holding = &hv
	}
	s.InvalidateClass(ctx, in.ClassID)
	s.log.Info("trade executed",
		"side", side,
		"guest_id", in.GuestID,
		"class_id", in.ClassID,
		"stock_id", in.StockID,
		"quantity", in.Quantity,
		"price", in.Price,
		"day", class.CurrentDay,
	)
	return out, nil
}

func lockHolding(ctx context.Context, tx pgx.Tx, guestID, stockID int64) (Position, bool, error) {
	var p Position
	var avg string
	err := tx.QueryRow(ctx, `
		SELECT quantity, average_price::text
		FROM holdings
		WHERE guest_id = $1 AND stock_id = $2
		FOR UPDATE
	`, guestID, stockID).Scan(&p.Quantity, &avg)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{AveragePrice: decimal.Zero}, false, nil
	}
	if err != nil {
		return p, false, err
	}
	p.AveragePrice, err = decimal.NewFromString(avg)
	if err != nil {
		return p, false, err
	}
	return p, true, nil
}

// holdingView values a position at price (or at cost when unpriced).
func holdingView(stockID int64, p Position, price int64, priced bool) HoldingView {
	value := HoldingValue(p, price, priced)
	cost := p.AveragePrice.Mul(decimal.NewFromInt(p.Quantity)).Round(0).IntPart()
	profit := value - cost
	return HoldingView{
		StockID:      stockID,
		Quantity:     p.Quantity,
		AveragePrice: p.AveragePrice.InexactFloat64(),
		CurrentPrice: price,
		Priced:       priced,
		Value:        value,
		Cost:         cost,
		Profit:       profit,
		ProfitRate:   rateFloat(ProfitRate(profit, cost)),
	}
}

func tradeResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientHoldings):
		return "insufficient_holdings"
	case errors.Is(err, ErrPriceMismatch), errors.Is(err, ErrPriceNotFound):
		return "price"
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrClassNotFound), errors.Is(err, ErrClassNotActive):
		return "rejected"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice):
		return "invalid"
	default:
		return "error"
	}
}
