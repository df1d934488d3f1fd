// Package admin implements the operator side: CRUD over clients, managers,
// classes, stocks, news, prices and students, plus admin accounts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"classtrade/internal/db"
	"classtrade/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInUse             = errors.New("still referenced by other records")
	ErrDayOutOfRange     = errors.New("day is outside the class's days")
	ErrTotalDaysTooLow   = errors.New("total days cannot be below the current day")
	ErrInvalidStatus     = errors.New("status must be setting, active or ended")
	ErrUnknownStock      = errors.New("related stock does not exist")
	ErrNewsClassMismatch = errors.New("news belongs to another class")
)

type Service struct {
	db   *pgxpool.Pool
	game *game.Service
	log  *slog.Logger
}

func NewService(db *pgxpool.Pool, g *game.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, game: g, log: logger}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func missing(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// notFound turns a missing row into ErrNotFound tagged with the entity.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return missing(what)
	}
	return err
}

// writeErr maps constraint violations from an insert or update.
func writeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s %w", what, ErrNotFound)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%s %w", what, ErrConflict)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%s references a missing record (%s): %w", what, db.ConstraintName(err), ErrNotFound)
	default:
		return err
	}
}

// deleteErr maps a delete blocked by a foreign key.
func deleteErr(err error, what string) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%s %w", what, ErrInUse)
	}
	return err
}

func (s *Service) invalidate(ctx context.Context, classID int64) {
	if s.game != nil {
		s.game.InvalidateClass(ctx, classID)
	}
}

func (s *Service) classDays(ctx context.Context, q querier, classID int64) (current, total int, err error) {
	err = q.QueryRow(ctx, `SELECT current_day, total_days FROM classes WHERE id = $1`, classID).Scan(&current, &total)
	return current, total, notFound(err, "class")
}
