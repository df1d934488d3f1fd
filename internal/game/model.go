package game

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"

	TxTypeBuy     = "BUY"
	TxTypeSell    = "SELL"
	TxTypeDeposit = "DEPOSIT"

	SubTypeTrade   = "TRADE"
	SubTypeBenefit = "BENEFIT"

	StatusSetting = "setting"
	StatusActive  = "active"
	StatusEnded   = "ended"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrClassNotFound        = errors.New("class not found")
	ErrClassNotActive       = errors.New("class is not open for trading")
	ErrClassEnded           = errors.New("class has ended")
	ErrGuestNotFound        = errors.New("student not found")
	ErrStockNotFound        = errors.New("stock not found")
	ErrPriceNotFound        = errors.New("stock has no price for the current day")
	ErrPriceMismatch        = errors.New("price has changed, refresh and try again")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInvalidQuantity      = errors.New("quantity must be a positive whole number")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrAmountOverflow       = errors.New("amount overflow")
	ErrInvalidNickname      = errors.New("nickname must be 2 to 12 letters, digits or underscores")
	ErrNicknameTaken        = errors.New("nickname already taken in this class")
	ErrInvalidPhone         = errors.New("phone must be 10 or 11 digits starting with 01")

	ErrLastDay      = errors.New("class is already on its last day")
	ErrFirstDay     = errors.New("class is already on day 1")
	ErrNoNewsForDay = errors.New("current day has no news")
	ErrNoStocks     = errors.New("no stocks are listed")
)

// MissingPricesError lists stocks without a price row for a day.
type MissingPricesError struct {
	Day      int
	StockIDs []int64
}

func (e *MissingPricesError) Error() string {
	ids := make([]string, len(e.StockIDs))
	for i, id := range e.StockIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("day %d is missing prices for stocks %s", e.Day, strings.Join(ids, ", "))
}

var (
	nicknameRE = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)
	digitsRE   = regexp.MustCompile(`\D`)
)

func ValidateNickname(nickname string) error {
	n := utf8.RuneCountInString(nickname)
	if n < 2 || n > 12 || !nicknameRE.MatchString(nickname) {
		return ErrInvalidNickname
	}
	return nil
}

// NormalizePhone strips separators and validates a Korean mobile number.
func NormalizePhone(phone string) (string, error) {
	digits := digitsRE.ReplaceAllString(phone, "")
	if len(digits) < 10 || len(digits) > 11 || !strings.HasPrefix(digits, "01") {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// Notional is quantity × price with overflow detection.
func Notional(quantity, price int64) (int64, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if price <= 0 {
		return 0, ErrInvalidPrice
	}
	if quantity > math.MaxInt64/price {
		return 0, ErrAmountOverflow
	}
	return quantity * price, nil
}

// Position is a guest's holding of one stock.
type Position struct {
	Quantity     int64
	AveragePrice decimal.Decimal
}

// WeightedAverage is (oldQty*oldAvg + qty*price) / (oldQty+qty), rounded to cents.
func WeightedAverage(held Position, qty, price int64) decimal.Decimal {
	oldCost := held.AveragePrice.Mul(decimal.NewFromInt(held.Quantity))
	newCost := decimal.NewFromInt(qty).Mul(decimal.NewFromInt(price))
	total := decimal.NewFromInt(held.Quantity + qty)
	return oldCost.Add(newCost).Div(total).Round(2)
}

// TradePlan is the post-trade state computed before any row is written.
type TradePlan struct {
	Notional int64
	Balance  int64
	Position Position
	// Remove is set when a sell empties the position.
	Remove bool
}

func PlanBuy(balance int64, held Position, qty, price int64) (TradePlan, error) {
	notional, err := Notional(qty, price)
	if err != nil {
		return TradePlan{}, err
	}
	if notional > balance {
		return TradePlan{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, notional, balance)
	}
	if held.Quantity > math.MaxInt64-qty {
		return TradePlan{}, ErrAmountOverflow
	}
	return TradePlan{
		Notional: notional,
		Balance:  balance - notional,
		Position: Position{
			Quantity:     held.Quantity + qty,
			AveragePrice: WeightedAverage(held, qty, price),
		},
	}, nil
}

func PlanSell(balance int64, held Position, qty, price int64) (TradePlan, error) {
	notional, err := Notional(qty, price)
	if err != nil {
		return TradePlan{}, err
	}
	if qty > held.Quantity {
		return TradePlan{}, fmt.Errorf("%w: selling %d, holding %d", ErrInsufficientHoldings, qty, held.Quantity)
	}
	if balance > math.MaxInt64-notional {
		return TradePlan{}, ErrAmountOverflow
	}
	next := held.Quantity - qty
	return TradePlan{
		Notional: notional,
		Balance:  balance + notional,
		Position: Position{Quantity: next, AveragePrice: held.AveragePrice},
		Remove:   next == 0,
	}, nil
}

// HoldingValue values qty shares at price, or at the average cost when the
// stock is unpriced for the day.
func HoldingValue(held Position, price int64, priced bool) int64 {
	if priced {
		return held.Quantity * price
	}
	return held.AveragePrice.Mul(decimal.NewFromInt(held.Quantity)).Round(0).IntPart()
}

// ProfitRate is profit / capital, zero when there is no capital.
func ProfitRate(profit, capital int64) decimal.Decimal {
	if capital == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(profit).Div(decimal.NewFromInt(capital))
}

func rateFloat(d decimal.Decimal) float64 {
	return d.Round(6).InexactFloat64()
}
