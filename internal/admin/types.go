package admin

import (
	"time"

	"classtrade/internal/game"
)

type Client struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ClientInput struct {
	Name         string `json:"name" validate:"notblank,max=100"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

type Manager struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ManagerInput struct {
	ClientID int64  `json:"client_id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type Class struct {
	ID              int64     `json:"id"`
	ClientID        int64     `json:"client_id"`
	ManagerID       *int64    `json:"manager_id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	CurrentDay      int       `json:"current_day"`
	TotalDays       int       `json:"total_days"`
	StartingBalance int64     `json:"starting_balance"`
	DailyBenefit    int64     `json:"daily_benefit"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ClassInput struct {
	ClientID        int64  `json:"client_id" validate:"required,gt=0"`
	ManagerID       *int64 `json:"manager_id" validate:"omitempty,gt=0"`
	Name            string `json:"name" validate:"notblank,max=100"`
	TotalDays       int    `json:"total_days" validate:"gte=1,lte=365"`
	StartingBalance int64  `json:"starting_balance" validate:"gte=0"`
	DailyBenefit    int64  `json:"daily_benefit" validate:"gte=0"`
}

type ClassFilter struct {
	ClientID int64
	Status   string
}

type Stock struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Sector        string    `json:"sector"`
	MarketCountry string    `json:"market_country_code"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type StockInput struct {
	Name          string `json:"name" validate:"notblank,max=100"`
	Sector        string `json:"sector" validate:"max=50"`
	MarketCountry string `json:"market_country_code" validate:"omitempty,iso3166_1_alpha2"`
	Description   string `json:"description" validate:"max=2000"`
}

type News struct {
	ID              int64     `json:"id"`
	ClassID         int64     `json:"class_id"`
	Day             int       `json:"day"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	RelatedStockIDs []int64   `json:"related_stock_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type NewsInput struct {
	ClassID         int64   `json:"class_id" validate:"required,gt=0"`
	Day             int     `json:"day" validate:"gte=1"`
	Title           string  `json:"title" validate:"notblank,max=200"`
	Content         string  `json:"content" validate:"max=10000"`
	RelatedStockIDs []int64 `json:"related_stock_ids" validate:"dive,gt=0"`
}

type Price struct {
	ID        int64     `json:"id"`
	ClassID   int64     `json:"class_id"`
	StockID   int64     `json:"stock_id"`
	StockName string    `json:"stock_name,omitempty"`
	Day       int       `json:"day"`
	Price     int64     `json:"price"`
	NewsID    *int64    `json:"news_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PriceInput struct {
	ClassID int64  `json:"class_id" validate:"required,gt=0"`
	StockID int64  `json:"stock_id" validate:"required,gt=0"`
	Day     int    `json:"day" validate:"gte=1"`
	Price   int64  `json:"price" validate:"gt=0"`
	NewsID  *int64 `json:"news_id" validate:"omitempty,gt=0"`
}

type Guest struct {
	ID          int64      `json:"id"`
	ClassID     int64      `json:"class_id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	School      string     `json:"school"`
	Grade       int        `json:"grade"`
	Nickname    *string    `json:"nickname"`
	Balance     int64      `json:"balance"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type GuestInput struct {
	// Row is the source line for bulk imports; zero means the slice position.
	Row    int    `json:"row,omitempty"`
	Name   string `json:"name" validate:"notblank,max=50"`
	Phone  string `json:"phone" validate:"notblank"`
	School string `json:"school" validate:"max=100"`
	Grade  int    `json:"grade" validate:"omitempty,gte=1,lte=12"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type BulkResult struct {
	Created int        `json:"created"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
	Guests  []Guest    `json:"guests"`
}

type Admin struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type DayCoverage struct {
	Day       int `json:"day"`
	NewsCount int `json:"news_count"`
	Priced    int `json:"priced_stocks"`
	// Universe counts every listed stock, the set a day advance requires prices for.
	Universe  int `json:"universe"`
}

type Overview struct {
	Class       Class             `json:"class"`
	GuestCount  int               `json:"guest_count"`
	Days        []DayCoverage     `json:"days"`
	TradesToday int64             `json:"trades_today"`
	VolumeToday int64             `json:"volume_today"`
	TopRanking  []game.RankingRow `json:"top_ranking"`
}
