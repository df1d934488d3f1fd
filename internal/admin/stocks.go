package admin

import (
	"context"
	"strings"

	"classtrade/internal/validate"
)

const stockColumns = `id, name, sector, market_country_code, description, created_at, updated_at`

func scanStock(row interface{ Scan(...any) error }) (Stock, error) {
	var st Stock
	err := row.Scan(&st.ID, &st.Name, &st.Sector, &st.MarketCountry, &st.Description, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

func (in *StockInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Sector = strings.TrimSpace(in.Sector)
	in.MarketCountry = strings.ToUpper(strings.TrimSpace(in.MarketCountry))
	if in.MarketCountry == "" {
		in.MarketCountry = "KR"
	}
	in.Description = strings.TrimSpace(in.Description)
}

func (s *Service) CreateStock(ctx context.Context, in StockInput) (Stock, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Stock{}, err
	}
	st, err := scanStock(s.db.QueryRow(ctx, `
		INSERT INTO stocks (name, sector, market_country_code, description)
		VALUES ($1, $2, $3, $4)
		RETURNING `+stockColumns, in.Name, in.Sector, in.MarketCountry, in.Description))
	return st, writeErr(err, "stock")
}

func (s *Service) ListStocks(ctx context.Context) ([]Stock, error) {
	rows, err := s.db.Query(ctx, `SELECT `+stockColumns+` FROM stocks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Stock{}
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Service) GetStock(ctx context.Context, id int64) (Stock, error) {
	st, err := scanStock(s.db.QueryRow(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1`, id))
	return st, notFound(err, "stock")
}

func (s *Service) UpdateStock(ctx context.Context, id int64, in StockInput) (Stock, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Stock{}, err
	}
	st, err := scanStock(s.db.QueryRow(ctx, `
		UPDATE stocks
		SET name = $2, sector = $3, market_country_code = $4, description = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+stockColumns, id, in.Name, in.Sector, in.MarketCountry, in.Description))
	return st, writeErr(err, "stock")
}

// DeleteStock removes a stock and, by cascade, its prices in every class.
// Stocks still held by a student cannot be deleted.
func (s *Service) DeleteStock(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM stocks WHERE id = $1`, id)
	if err != nil {
		return deleteErr(err, "stock")
	}
	if tag.RowsAffected() == 0 {
		return missing("stock")
	}
	s.log.Info("stock deleted", "stock_id", id)
	return nil
}

var defaultStocks = []StockInput{
	{Name: "한빛전자", Sector: "Semiconductors", MarketCountry: "KR", Description: "Memory chips and display panels."},
	{Name: "새솔바이오", Sector: "Healthcare", MarketCountry: "KR", Description: "Vaccines and diagnostic kits."},
	{Name: "푸른에너지", Sector: "Energy", MarketCountry: "KR", Description: "Solar farms and battery storage."},
	{Name: "다온게임즈", Sector: "Entertainment", MarketCountry: "KR", Description: "Mobile and console games."},
	{Name: "바른식품", Sector: "Consumer Staples", MarketCountry: "KR", Description: "Packaged food and beverages."},
	{Name: "하늘항공", Sector: "Transportation", MarketCountry: "KR", Description: "Domestic and international airline."},
	{Name: "Nimbus Cloud", Sector: "Software", MarketCountry: "US", Description: "Cloud infrastructure services."},
	{Name: "Orbit Motors", Sector: "Automotive", MarketCountry: "US", Description: "Electric vehicles."},
	{Name: "Sakura Robotics", Sector: "Industrials", MarketCountry: "JP", Description: "Factory automation robots."},
	{Name: "Lumen Retail", Sector: "Consumer Discretionary", MarketCountry: "GB", Description: "Online fashion retail."},
}

// SeedStocks inserts the default stock list when the stocks table is empty.
func (s *Service) SeedStocks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM stocks`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	for _, row := range defaultStocks {
		_, err := tx.Exec(ctx, `
			INSERT INTO stocks (name, sector, market_country_code, description)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, row.Name, row.Sector, row.MarketCountry, row.Description)
		if err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(defaultStocks), nil
}
