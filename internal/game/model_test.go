package game

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateNickname(t *testing.T) {
	valid := []string{"ab", "trader_01", "주식왕", "abcdefghijkl"}
	for _, s := range valid {
		if err := ValidateNickname(s); err != nil {
			t.Fatalf("expected nickname %q to be valid: %v", s, err)
		}
	}

	invalid := []string{"", "a", "abcdefghijklm", "has space", "dash-ed", "이모지😀"}
	for _, s := range invalid {
		if err := ValidateNickname(s); !errors.Is(err, ErrInvalidNickname) {
			t.Fatalf("expected nickname %q to fail, got %v", s, err)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "010-1234-5678", want: "01012345678", ok: true},
		{in: "011 123 4567", want: "0111234567", ok: true},
		{in: "01012345678", want: "01012345678", ok: true},
		{in: "02-123-4567", ok: false},
		{in: "010-1234", ok: false},
		{in: "010-1234-56789", ok: false},
	}
	for _, tc := range tests {
		got, err := NormalizePhone(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("phone=%q got=%q err=%v want=%q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("phone=%q expected ErrInvalidPhone, got %v", tc.in, err)
		}
	}
}

func TestNotional(t *testing.T) {
	got, err := Notional(5, 10_000)
	if err != nil || got != 50_000 {
		t.Fatalf("got=%d err=%v want 50000", got, err)
	}
	if _, err := Notional(0, 10); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := Notional(1, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := Notional(math.MaxInt64/2, 3); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestPlanBuyFromEmpty(t *testing.T) {
	plan, err := PlanBuy(100_000, Position{AveragePrice: decimal.Zero}, 5, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Balance != 50_000 {
		t.Fatalf("balance=%d want 50000", plan.Balance)
	}
	if plan.Position.Quantity != 5 {
		t.Fatalf("quantity=%d want 5", plan.Position.Quantity)
	}
	if !plan.Position.AveragePrice.Equal(decimal.NewFromInt(10_000)) {
		t.Fatalf("avg=%s want 10000", plan.Position.AveragePrice)
	}
	if plan.Notional != 50_000 || plan.Remove {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanBuyWeightedAverage(t *testing.T) {
	held := Position{Quantity: 10, AveragePrice: decimal.NewFromInt(8_000)}
	plan, err := PlanBuy(1_000_000, held, 10, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Position.Quantity != 20 {
		t.Fatalf("quantity=%d want 20", plan.Position.Quantity)
	}
	if !plan.Position.AveragePrice.Equal(decimal.NewFromInt(9_000)) {
		t.Fatalf("avg=%s want 9000", plan.Position.AveragePrice)
	}
	if plan.Balance != 900_000 {
		t.Fatalf("balance=%d want 900000", plan.Balance)
	}
}

func TestWeightedAverageRoundsToCents(t *testing.T) {
	held := Position{Quantity: 3, AveragePrice: decimal.NewFromInt(100)}
	got := WeightedAverage(held, 1, 101)
	// (300 + 101) / 4 = 100.25
	if got.StringFixed(2) != "100.25" {
		t.Fatalf("avg=%s want 100.25", got.StringFixed(2))
	}
	got = WeightedAverage(Position{Quantity: 2, AveragePrice: decimal.NewFromInt(100)}, 1, 101)
	if got.StringFixed(2) != "100.33" {
		t.Fatalf("avg=%s want 100.33", got.StringFixed(2))
	}
}

func TestPlanBuyInsufficientFunds(t *testing.T) {
	_, err := PlanBuy(49_999, Position{AveragePrice: decimal.Zero}, 5, 10_000)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	plan, err := PlanBuy(50_000, Position{AveragePrice: decimal.Zero}, 5, 10_000)
	if err != nil || plan.Balance != 0 {
		t.Fatalf("exact balance buy: plan=%+v err=%v", plan, err)
	}
}

func TestPlanSell(t *testing.T) {
	held := Position{Quantity: 5, AveragePrice: decimal.NewFromInt(10_000)}

	plan, err := PlanSell(50_000, held, 2, 12_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Balance != 74_000 || plan.Position.Quantity != 3 || plan.Remove {
		t.Fatalf("partial sell plan=%+v", plan)
	}
	if !plan.Position.AveragePrice.Equal(held.AveragePrice) {
		t.Fatalf("sell must keep average price, got %s", plan.Position.AveragePrice)
	}

	plan, err = PlanSell(50_000, held, 5, 9_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plan.Remove || plan.Position.Quantity != 0 || plan.Balance != 95_000 {
		t.Fatalf("sell-all plan=%+v", plan)
	}

	if _, err := PlanSell(50_000, held, 6, 9_000); !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	if _, err := PlanSell(50_000, Position{AveragePrice: decimal.Zero}, 1, 9_000); !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings with no holding, got %v", err)
	}
}

func TestHoldingValue(t *testing.T) {
	held := Position{Quantity: 4, AveragePrice: decimal.RequireFromString("9000.50")}
	if got := HoldingValue(held, 10_000, true); got != 40_000 {
		t.Fatalf("priced value=%d want 40000", got)
	}
	if got := HoldingValue(held, 0, false); got != 36_002 {
		t.Fatalf("unpriced value=%d want 36002", got)
	}
}

func TestProfitRate(t *testing.T) {
	if got := ProfitRate(500, 0); !got.IsZero() {
		t.Fatalf("zero capital rate=%s want 0", got)
	}
	if got := rateFloat(ProfitRate(-25_000, 100_000)); got != -0.25 {
		t.Fatalf("rate=%v want -0.25", got)
	}
}

func TestMissingPricesErrorMessage(t *testing.T) {
	err := &MissingPricesError{Day: 3, StockIDs: []int64{4, 9}}
	if err.Error() != "day 3 is missing prices for stocks 4, 9" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
