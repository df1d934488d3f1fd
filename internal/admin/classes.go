package admin

import (
	"context"
	"fmt"
	"strings"

	"classtrade/internal/game"
	"classtrade/internal/validate"

	"github.com/jackc/pgx/v5"
)

const classColumns = `id, client_id, manager_id, name, status, current_day, total_days, starting_balance, daily_benefit, created_at, updated_at`

func scanClass(row interface{ Scan(...any) error }) (Class, error) {
	var c Class
	err := row.Scan(&c.ID, &c.ClientID, &c.ManagerID, &c.Name, &c.Status, &c.CurrentDay,
		&c.TotalDays, &c.StartingBalance, &c.DailyBenefit, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Service) CreateClass(ctx context.Context, in ClassInput) (Class, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return Class{}, err
	}
	c, err := scanClass(s.db.QueryRow(ctx, `
		INSERT INTO classes (client_id, manager_id, name, total_days, starting_balance, daily_benefit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+classColumns,
		in.ClientID, in.ManagerID, in.Name, in.TotalDays, in.StartingBalance, in.DailyBenefit))
	if err != nil {
		return c, writeErr(err, "class")
	}
	s.log.Info("class created", "class_id", c.ID, "client_id", c.ClientID, "total_days", c.TotalDays)
	return c, nil
}

func (s *Service) ListClasses(ctx context.Context, f ClassFilter) ([]Class, error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+classColumns+`
		FROM classes
		WHERE ($1::bigint = 0 OR client_id = $1)
		  AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
	`, f.ClientID, f.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) GetClass(ctx context.Context, id int64) (Class, error) {
	c, err := scanClass(s.db.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	return c, notFound(err, "class")
}

// UpdateClass edits a class's settings. The current day and status are
// changed only through day progression and SetStatus.
func (s *Service) UpdateClass(ctx context.Context, id int64, in ClassInput) (Class, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return Class{}, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Class{}, err
	}
	defer tx.Rollback(ctx)

	var current int
	err = tx.QueryRow(ctx, `SELECT current_day FROM classes WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		return Class{}, notFound(err, "class")
	}
	if in.TotalDays < current {
		return Class{}, fmt.Errorf("%w (current day %d)", ErrTotalDaysTooLow, current)
	}
	c, err := scanClass(tx.QueryRow(ctx, `
		UPDATE classes
		SET client_id = $2, manager_id = $3, name = $4, total_days = $5,
		    starting_balance = $6, daily_benefit = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+classColumns,
		id, in.ClientID, in.ManagerID, in.Name, in.TotalDays, in.StartingBalance, in.DailyBenefit))
	if err != nil {
		return c, writeErr(err, "class")
	}
	if err := tx.Commit(ctx); err != nil {
		return c, err
	}
	s.invalidate(ctx, id)
	return c, nil
}

func validStatus(status string) bool {
	switch status {
	case game.StatusSetting, game.StatusActive, game.StatusEnded:
		return true
	}
	return false
}

func (s *Service) SetClassStatus(ctx context.Context, id int64, status string) (Class, error) {
	if !validStatus(status) {
		return Class{}, ErrInvalidStatus
	}
	c, err := scanClass(s.db.QueryRow(ctx, `
		UPDATE classes
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+classColumns, id, status))
	if err != nil {
		return c, notFound(err, "class")
	}
	s.invalidate(ctx, id)
	s.log.Info("class status changed", "class_id", id, "status", status)
	return c, nil
}

// DeleteClass removes the class's prices, then its news, then the class.
// Students, wallets, holdings and transactions go with the class by cascade.
func (s *Service) DeleteClass(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM class_stock_prices WHERE class_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM news WHERE class_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return deleteErr(err, "class")
	}
	if tag.RowsAffected() == 0 {
		return missing("class")
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.Info("class deleted", "class_id", id)
	return nil
}
