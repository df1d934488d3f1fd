package admin

import (
	"context"
	"errors"
	"strings"

	"classtrade/internal/auth"

	"github.com/jackc/pgx/v5"
)

// Authenticate checks an admin's email and password and stamps the login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var a Admin
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, last_login_at
		FROM admins
		WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Name, &hash, &a.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{}, auth.ErrBadCredentials
	}
	if err != nil {
		return Admin{}, err
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		s.log.Warn("admin login rejected", "admin_id", a.ID)
		return Admin{}, err
	}
	if _, err := s.db.Exec(ctx, `UPDATE admins SET last_login_at = now() WHERE id = $1`, a.ID); err != nil {
		return Admin{}, err
	}
	return a, nil
}

// CreateAdmin adds an admin account. An existing email is left untouched and
// reported with created=false.
func (s *Service) CreateAdmin(ctx context.Context, email, name, password string) (Admin, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Admin{}, false, errors.New("admin email is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Admin{}, false, err
	}
	var a Admin
	err = s.db.QueryRow(ctx, `
		INSERT INTO admins (email, name, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, name, last_login_at
	`, email, strings.TrimSpace(name), hash).Scan(&a.ID, &a.Email, &a.Name, &a.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{Email: email}, false, nil
	}
	if err != nil {
		return Admin{}, false, err
	}
	s.log.Info("admin account created", "admin_id", a.ID)
	return a, true, nil
}
