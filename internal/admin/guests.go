package admin

import (
	"context"
	"errors"
	"strings"

	"classtrade/internal/db"
	"classtrade/internal/game"
	"classtrade/internal/metrics"
	"classtrade/internal/validate"

	"github.com/jackc/pgx/v5"
)

var ErrDuplicatePhone = errors.New("a student with this phone is already in the class")

const guestColumns = `g.id, g.class_id, g.name, g.phone, g.school, g.grade, g.nickname, COALESCE(w.balance, 0), g.last_login_at, g.created_at`

func scanGuest(row interface{ Scan(...any) error }) (Guest, error) {
	var g Guest
	err := row.Scan(&g.ID, &g.ClassID, &g.Name, &g.Phone, &g.School, &g.Grade, &g.Nickname, &g.Balance, &g.LastLoginAt, &g.CreatedAt)
	return g, err
}

// normalize trims fields and canonicalizes the phone number.
func (in *GuestInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.School = strings.TrimSpace(in.School)
	if err := validate.Struct(*in); err != nil {
		return err
	}
	phone, err := game.NormalizePhone(in.Phone)
	if err != nil {
		return validate.Field("phone", err.Error())
	}
	in.Phone = phone
	return nil
}

// CreateGuest registers a student with a wallet holding the class's starting
// balance. The starting balance is logged as a benefit deposit on the
// class's current day so it counts as invested capital.
func (s *Service) CreateGuest(ctx context.Context, classID int64, in GuestInput) (Guest, error) {
	g, err := s.createGuest(ctx, classID, in)
	if err != nil {
		return g, err
	}
	s.invalidate(ctx, classID)
	return g, nil
}

func (s *Service) createGuest(ctx context.Context, classID int64, in GuestInput) (Guest, error) {
	if err := in.normalize(); err != nil {
		return Guest{}, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Guest{}, err
	}
	defer tx.Rollback(ctx)

	var day int
	var starting int64
	err = tx.QueryRow(ctx, `
		SELECT current_day, starting_balance FROM classes WHERE id = $1 FOR SHARE
	`, classID).Scan(&day, &starting)
	if err != nil {
		return Guest{}, notFound(err, "class")
	}

	var guestID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO guests (class_id, name, phone, school, grade)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, classID, in.Name, in.Phone, in.School, in.Grade).Scan(&guestID)
	if db.IsUniqueViolation(err) {
		return Guest{}, ErrDuplicatePhone
	}
	if err != nil {
		return Guest{}, err
	}

	var walletID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO wallets (guest_id, balance) VALUES ($1, $2) RETURNING id
	`, guestID, starting).Scan(&walletID); err != nil {
		return Guest{}, err
	}
	if starting > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO transactions (wallet_id, class_id, type, sub_type, quantity, price, day)
			VALUES ($1, $2, $3, $4, 1, $5, $6)
		`, walletID, classID, game.TxTypeDeposit, game.SubTypeBenefit, starting, day); err != nil {
			return Guest{}, err
		}
	}

	g, err := s.getGuest(ctx, tx, guestID)
	if err != nil {
		return g, err
	}
	if err := tx.Commit(ctx); err != nil {
		return g, err
	}
	s.log.Info("student created", "guest_id", g.ID, "class_id", classID)
	return g, nil
}

// BulkCreate creates each row on its own. A failed row is reported and does
// not undo the rows before it.
func (s *Service) BulkCreate(ctx context.Context, classID int64, rows []GuestInput) (BulkResult, error) {
	if _, err := s.GetClass(ctx, classID); err != nil {
		return BulkResult{}, err
	}
	out := BulkResult{Errors: []RowError{}, Guests: []Guest{}}
	for i, in := range rows {
		row := in.Row
		if row == 0 {
			row = i + 1
		}
		g, err := s.createGuest(ctx, classID, in)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			out.Failed++
			out.Errors = append(out.Errors, RowError{Row: row, Message: rowMessage(err)})
			metrics.BulkGuests.WithLabelValues("failed").Inc()
			continue
		}
		out.Created++
		out.Guests = append(out.Guests, g)
		metrics.BulkGuests.WithLabelValues("created").Inc()
	}
	if out.Created > 0 {
		s.invalidate(ctx, classID)
	}
	s.log.Info("bulk student import", "class_id", classID, "created", out.Created, "failed", out.Failed)
	return out, nil
}

// rowMessage keeps client-facing causes and hides infrastructure errors.
func rowMessage(err error) string {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrDuplicatePhone):
		return err.Error()
	default:
		return "could not create student"
	}
}

func (s *Service) getGuest(ctx context.Context, q querier, id int64) (Guest, error) {
	g, err := scanGuest(q.QueryRow(ctx, `
		SELECT `+guestColumns+`
		FROM guests g
		LEFT JOIN wallets w ON w.guest_id = g.id
		WHERE g.id = $1
	`, id))
	return g, notFound(err, "student")
}

func (s *Service) GetGuest(ctx context.Context, id int64) (Guest, error) {
	return s.getGuest(ctx, s.db, id)
}

func (s *Service) ListGuests(ctx context.Context, classID int64) ([]Guest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+guestColumns+`
		FROM guests g
		LEFT JOIN wallets w ON w.guest_id = g.id
		WHERE g.class_id = $1
		ORDER BY g.name, g.id
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Service) UpdateGuest(ctx context.Context, id int64, in GuestInput) (Guest, error) {
	if err := in.normalize(); err != nil {
		return Guest{}, err
	}
	var classID int64
	err := s.db.QueryRow(ctx, `
		UPDATE guests
		SET name = $2, phone = $3, school = $4, grade = $5
		WHERE id = $1
		RETURNING class_id
	`, id, in.Name, in.Phone, in.School, in.Grade).Scan(&classID)
	if db.IsUniqueViolation(err) {
		return Guest{}, ErrDuplicatePhone
	}
	if err != nil {
		return Guest{}, notFound(err, "student")
	}
	s.invalidate(ctx, classID)
	return s.GetGuest(ctx, id)
}

// DeleteGuest removes a student with its wallet, holdings and log.
func (s *Service) DeleteGuest(ctx context.Context, id int64) error {
	var classID int64
	err := s.db.QueryRow(ctx, `DELETE FROM guests WHERE id = $1 RETURNING class_id`, id).Scan(&classID)
	if errors.Is(err, pgx.ErrNoRows) {
		return missing("student")
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, classID)
	s.log.Info("student deleted", "guest_id", id, "class_id", classID)
	return nil
}

// GuestClass returns the class a student belongs to.
func (s *Service) GuestClass(ctx context.Context, guestID int64) (int64, error) {
	var classID int64
	err := s.db.QueryRow(ctx, `SELECT class_id FROM guests WHERE id = $1`, guestID).Scan(&classID)
	if err != nil {
		return 0, notFound(err, "student")
	}
	return classID, nil
}
