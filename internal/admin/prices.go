package admin

import (
	"context"
	"errors"
	"fmt"

	"classtrade/internal/validate"

	"github.com/jackc/pgx/v5"
)

const priceColumns = `p.id, p.class_id, p.stock_id, s.name, p.day, p.price, p.news_id, p.updated_at`

func scanPrice(row interface{ Scan(...any) error }) (Price, error) {
	var p Price
	err := row.Scan(&p.ID, &p.ClassID, &p.StockID, &p.StockName, &p.Day, &p.Price, &p.NewsID, &p.UpdatedAt)
	return p, err
}

// UpsertPrice sets the price of a stock in a class for one day.
func (s *Service) UpsertPrice(ctx context.Context, in PriceInput) (Price, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Price{}, err
	}
	defer tx.Rollback(ctx)

	p, err := s.upsertPrice(ctx, tx, in)
	if err != nil {
		return p, err
	}
	if err := tx.Commit(ctx); err != nil {
		return p, err
	}
	s.invalidate(ctx, in.ClassID)
	return p, nil
}

func (s *Service) upsertPrice(ctx context.Context, tx pgx.Tx, in PriceInput) (Price, error) {
	if err := validate.Struct(in); err != nil {
		return Price{}, err
	}
	_, total, err := s.classDays(ctx, tx, in.ClassID)
	if err != nil {
		return Price{}, err
	}
	if in.Day > total {
		return Price{}, fmt.Errorf("%w: day %d of %d", ErrDayOutOfRange, in.Day, total)
	}
	if in.NewsID != nil {
		var newsClass int64
		err := tx.QueryRow(ctx, `SELECT class_id FROM news WHERE id = $1`, *in.NewsID).Scan(&newsClass)
		if errors.Is(err, pgx.ErrNoRows) {
			return Price{}, missing("news")
		}
		if err != nil {
			return Price{}, err
		}
		if newsClass != in.ClassID {
			return Price{}, ErrNewsClassMismatch
		}
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO class_stock_prices (class_id, stock_id, day, price, news_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT class_stock_prices_unique
		DO UPDATE SET price = EXCLUDED.price, news_id = EXCLUDED.news_id, updated_at = now()
		RETURNING id
	`, in.ClassID, in.StockID, in.Day, in.Price, in.NewsID).Scan(&id)
	if err != nil {
		return Price{}, writeErr(err, "price")
	}
	p, err := scanPrice(tx.QueryRow(ctx, `
		SELECT `+priceColumns+`
		FROM class_stock_prices p
		JOIN stocks s ON s.id = p.stock_id
		WHERE p.id = $1
	`, id))
	return p, err
}

// ListPrices lists a class's price grid; day 0 lists every day.
func (s *Service) ListPrices(ctx context.Context, classID int64, day int) ([]Price, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+priceColumns+`
		FROM class_stock_prices p
		JOIN stocks s ON s.id = p.stock_id
		WHERE p.class_id = $1 AND ($2::int = 0 OR p.day = $2)
		ORDER BY p.day, s.name
	`, classID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Price{}
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Service) DeletePrice(ctx context.Context, id int64) error {
	var classID int64
	err := s.db.QueryRow(ctx, `DELETE FROM class_stock_prices WHERE id = $1 RETURNING class_id`, id).Scan(&classID)
	if err != nil {
		return notFound(err, "price")
	}
	s.invalidate(ctx, classID)
	return nil
}
