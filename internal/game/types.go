package game

import "time"

type ClassInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	CurrentDay   int    `json:"current_day"`
	TotalDays    int    `json:"total_days"`
	DailyBenefit int64  `json:"daily_benefit"`
}

type Guest struct {
	ID       int64  `json:"id"`
	ClassID  int64  `json:"class_id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
	School   string `json:"school"`
	Grade    int    `json:"grade"`
}

// DisplayName is the nickname, or the real name before setup.
func (g Guest) DisplayName() string {
	if g.Nickname != "" {
		return g.Nickname
	}
	return g.Name
}

type TradeInput struct {
	GuestID  int64 `json:"-"`
	ClassID  int64 `json:"-"`
	StockID  int64 `json:"stock_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
	Price    int64 `json:"price" validate:"required,gt=0"`
}

type TradeResult struct {
	TransactionID int64        `json:"transaction_id"`
	Side          string       `json:"side"`
	Day           int          `json:"day"`
	Notional      int64        `json:"notional"`
	Balance       int64        `json:"balance"`
	Holding       *HoldingView `json:"holding"`
}

type HoldingView struct {
	StockID      int64   `json:"stock_id"`
	StockName    string  `json:"stock_name,omitempty"`
	Quantity     int64   `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice int64   `json:"current_price"`
	Priced       bool    `json:"priced"`
	Value        int64   `json:"value"`
	Cost         int64   `json:"cost"`
	Profit       int64   `json:"profit"`
	ProfitRate   float64 `json:"profit_rate"`
}

type RankingRow struct {
	Rank           int     `json:"rank"`
	GuestID        int64   `json:"guest_id"`
	Nickname       string  `json:"nickname"`
	TotalAssets    int64   `json:"total_assets"`
	InitialCapital int64   `json:"initial_capital"`
	Profit         int64   `json:"profit"`
	ProfitRate     float64 `json:"profit_rate"`
}

type BenefitView struct {
	TransactionID int64     `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Day           int       `json:"day"`
	CreatedAt     time.Time `json:"created_at"`
}

type Dashboard struct {
	GuestID        int64         `json:"guest_id"`
	ClassID        int64         `json:"class_id"`
	CurrentDay     int           `json:"current_day"`
	TotalDays      int           `json:"total_days"`
	Balance        int64         `json:"balance"`
	Holdings       []HoldingView `json:"holdings"`
	TotalAssets    int64         `json:"total_assets"`
	InitialCapital int64         `json:"initial_capital"`
	Profit         int64         `json:"profit"`
	ProfitRate     float64       `json:"profit_rate"`
	Rank           int           `json:"rank"`
	RankedGuests   int           `json:"ranked_guests"`
	TodayBenefit   *BenefitView  `json:"today_benefit"`
}

type StockView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	MarketCountry string  `json:"market_country_code"`
	Price         int64   `json:"price"`
	PreviousPrice *int64  `json:"previous_price"`
	Change        int64   `json:"change"`
	ChangeRate    float64 `json:"change_rate"`
	HeldQuantity  int64   `json:"held_quantity"`
}

type PricePoint struct {
	Day   int   `json:"day"`
	Price int64 `json:"price"`
}

type StockDetail struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Sector        string       `json:"sector"`
	MarketCountry string       `json:"market_country_code"`
	Description   string       `json:"description"`
	Series        []PricePoint `json:"series"`
	News          []NewsView   `json:"news"`
}

type NewsView struct {
	ID              int64     `json:"id"`
	Day             int       `json:"day"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	RelatedStockIDs []int64   `json:"related_stock_ids"`
	CreatedAt       time.Time `json:"created_at"`
}

type TransactionView struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	SubType   string    `json:"sub_type"`
	StockID   *int64    `json:"stock_id"`
	StockName string    `json:"stock_name,omitempty"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
	Amount    int64     `json:"amount"`
	Day       int       `json:"day"`
	CreatedAt time.Time `json:"created_at"`
}

type DayChange struct {
	ClassID      int64 `json:"class_id"`
	PreviousDay  int   `json:"previous_day"`
	CurrentDay   int   `json:"current_day"`
	BenefitsPaid int64 `json:"benefits_paid"`
	BenefitEach  int64 `json:"benefit_each"`
}
