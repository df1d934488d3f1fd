package game

import (
	"context"
	"errors"
	"strings"

	"classtrade/internal/db"

	"github.com/jackc/pgx/v5"
)

// Login finds a guest by class and phone; the name must match too.
func (s *Service) Login(ctx context.Context, classID int64, name, phone string) (Guest, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return Guest{}, ErrGuestNotFound
	}
	g, status, err := s.guestWhere(ctx, `g.class_id = $1 AND g.phone = $2`, classID, normalized)
	if err != nil {
		return g, err
	}
	if !strings.EqualFold(strings.TrimSpace(name), g.Name) {
		return Guest{}, ErrGuestNotFound
	}
	return s.finishLogin(ctx, g, status)
}

// LoginByID starts a session for a guest already identified by a QR token.
func (s *Service) LoginByID(ctx context.Context, guestID, classID int64) (Guest, error) {
	g, status, err := s.guestWhere(ctx, `g.id = $1 AND g.class_id = $2`, guestID, classID)
	if err != nil {
		return g, err
	}
	return s.finishLogin(ctx, g, status)
}

func (s *Service) finishLogin(ctx context.Context, g Guest, status string) (Guest, error) {
	if status == StatusEnded {
		return Guest{}, ErrClassEnded
	}
	if _, err := s.db.Exec(ctx, `UPDATE guests SET last_login_at = now() WHERE id = $1`, g.ID); err != nil {
		return Guest{}, err
	}
	s.log.Info("guest login", "guest_id", g.ID, "class_id", g.ClassID)
	return g, nil
}

// Guest returns a guest with its class status.
func (s *Service) Guest(ctx context.Context, guestID int64) (Guest, string, error) {
	return s.guestWhere(ctx, `g.id = $1`, guestID)
}

func (s *Service) guestWhere(ctx context.Context, where string, args ...any) (Guest, string, error) {
	var g Guest
	var status string
	err := s.db.QueryRow(ctx, `
		SELECT g.id, g.class_id, g.name, COALESCE(g.nickname, ''), g.school, g.grade, c.status
		FROM guests g
		JOIN classes c ON c.id = g.class_id
		WHERE `+where, args...).Scan(&g.ID, &g.ClassID, &g.Name, &g.Nickname, &g.School, &g.Grade, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guest{}, "", ErrGuestNotFound
	}
	return g, status, err
}

func (s *Service) SetNickname(ctx context.Context, guestID int64, nickname string) (Guest, error) {
	nickname = strings.TrimSpace(nickname)
	if err := ValidateNickname(nickname); err != nil {
		return Guest{}, err
	}
	var g Guest
	err := s.db.QueryRow(ctx, `
		UPDATE guests
		SET nickname = $1
		WHERE id = $2
		RETURNING id, class_id, name, COALESCE(nickname, ''), school, grade
	`, nickname, guestID).Scan(&g.ID, &g.ClassID, &g.Name, &g.Nickname, &g.School, &g.Grade)
	if errors.Is(err, pgx.ErrNoRows) {
		return g, ErrGuestNotFound
	}
	if db.IsUniqueViolation(err) {
		return g, ErrNicknameTaken
	}
	if err != nil {
		return g, err
	}
	s.InvalidateClass(ctx, g.ClassID)
	return g, nil
}
