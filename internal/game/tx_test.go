package game

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewService(mock, nil, nil, 0), mock
}

func classRow(status string, day, total int, benefit int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "status", "current_day", "total_days", "daily_benefit"}).
		AddRow(int64(7), "3반", status, day, total, benefit)
}

func expectMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSellWholePositionDeletesHolding(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`FROM classes\s+WHERE id = \$1 FOR SHARE`).
		WithArgs(int64(7)).
		WillReturnRows(classRow(StatusActive, 2, 5, 0))
	mock.ExpectQuery(`FROM wallets w[\s\S]*FOR UPDATE OF w`).
		WithArgs(int64(11), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "balance"}).AddRow(int64(31), int64(5000)))
	mock.ExpectQuery(`FROM class_stock_prices`).
		WithArgs(int64(7), int64(3), 2).
		WillReturnRows(pgxmock.NewRows([]string{"price"}).AddRow(int64(1200)))
	mock.ExpectQuery(`FROM holdings[\s\S]*FOR UPDATE`).
		WithArgs(int64(11), int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"quantity", "average_price"}).AddRow(int64(10), "1000.00"))
	mock.ExpectExec(`DELETE FROM holdings`).
		WithArgs(int64(11), int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(31), int64(7), int64(3), TxTypeSell, SubTypeTrade, int64(10), int64(1200), 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(99)))
	mock.ExpectExec(`UPDATE wallets`).
		WithArgs(int64(17000), int64(31)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	out, err := svc.Sell(context.Background(), TradeInput{GuestID: 11, ClassID: 7, StockID: 3, Quantity: 10, Price: 1200})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if out.TransactionID != 99 || out.Balance != 17000 || out.Notional != 12000 || out.Day != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.Holding != nil {
		t.Fatalf("expected no holding after selling everything, got %+v", out.Holding)
	}
	expectMet(t, mock)
}

func TestBuyRollsBackWithoutFunds(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`FROM classes`).
		WithArgs(int64(7)).
		WillReturnRows(classRow(StatusActive, 1, 5, 0))
	mock.ExpectQuery(`FROM wallets w`).
		WithArgs(int64(11), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "balance"}).AddRow(int64(31), int64(500)))
	mock.ExpectQuery(`FROM class_stock_prices`).
		WithArgs(int64(7), int64(3), 1).
		WillReturnRows(pgxmock.NewRows([]string{"price"}).AddRow(int64(1200)))
	mock.ExpectQuery(`FROM holdings`).
		WithArgs(int64(11), int64(3)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Buy(context.Background(), TradeInput{GuestID: 11, ClassID: 7, StockID: 3, Quantity: 1, Price: 1200})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	expectMet(t, mock)
}

func TestTradeRejectedWhenClassNotActive(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`FROM classes`).
		WithArgs(int64(7)).
		WillReturnRows(classRow(StatusSetting, 1, 5, 0))
	mock.ExpectRollback()

	_, err := svc.Buy(context.Background(), TradeInput{GuestID: 11, ClassID: 7, StockID: 3, Quantity: 1, Price: 1200})
	if !errors.Is(err, ErrClassNotActive) {
		t.Fatalf("expected ErrClassNotActive, got %v", err)
	}
	expectMet(t, mock)
}

func TestAdvanceDayNeedsPriceForEveryListedStock(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`FROM classes\s+WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(classRow(StatusActive, 1, 5, 1000))
	mock.ExpectQuery(`FROM news`).
		WithArgs(int64(7), 1).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`FROM stocks s\s+LEFT JOIN class_stock_prices`).
		WithArgs(int64(7), 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "priced"}).
			AddRow(int64(1), true).
			AddRow(int64(2), false))
	mock.ExpectRollback()

	_, err := svc.AdvanceDay(context.Background(), 7)
	var missing *MissingPricesError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPricesError, got %v", err)
	}
	if !reflect.DeepEqual(missing.StockIDs, []int64{2}) {
		t.Fatalf("unexpected missing stocks: %v", missing.StockIDs)
	}
	expectMet(t, mock)
}

func TestAdvanceDayPaysBenefit(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`FROM classes`).
		WithArgs(int64(7)).
		WillReturnRows(classRow(StatusActive, 1, 5, 1000))
	mock.ExpectQuery(`FROM news`).
		WithArgs(int64(7), 1).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM stocks s`).
		WithArgs(int64(7), 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "priced"}).
			AddRow(int64(1), true).
			AddRow(int64(2), true))
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(int64(7), int64(1000), 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectExec(`UPDATE wallets`).
		WithArgs(int64(7), int64(1000)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec(`UPDATE classes SET current_day`).
		WithArgs(int64(7), 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	out, err := svc.AdvanceDay(context.Background(), 7)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	want := DayChange{ClassID: 7, PreviousDay: 1, CurrentDay: 2, BenefitEach: 1000, BenefitsPaid: 3}
	if out != want {
		t.Fatalf("got %+v, want %+v", out, want)
	}
	expectMet(t, mock)
}
