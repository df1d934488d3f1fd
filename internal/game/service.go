package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"classtrade/internal/cache"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultRankingTTL = 60 * time.Second

// DB is the part of *pgxpool.Pool the service needs.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Service struct {
	db         DB
	cache      *cache.Cache
	log        *slog.Logger
	rankingTTL time.Duration
}

func NewService(db DB, c *cache.Cache, logger *slog.Logger, rankingTTL time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(nil, "")
	}
	if rankingTTL <= 0 {
		rankingTTL = defaultRankingTTL
	}
	return &Service{
		db:         db,
		cache:      c,
		log:        logger,
		rankingTTL: rankingTTL,
	}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func classTag(classID int64) string {
	return fmt.Sprintf("class:%d", classID)
}

func rankingKey(classID int64, day int) string {
	return fmt.Sprintf("ranking:%d:%d", classID, day)
}

// InvalidateClass drops every cached view derived from the class. Failures are
// logged; the TTL bounds staleness.
func (s *Service) InvalidateClass(ctx context.Context, classID int64) {
	if err := s.cache.InvalidateTag(ctx, classTag(classID)); err != nil {
		s.log.Warn("ranking cache invalidation failed", "class_id", classID, "err", err)
	}
}

func (s *Service) Class(ctx context.Context, classID int64) (ClassInfo, error) {
	return loadClass(ctx, s.db, classID, "")
}

// loadClass reads a class row; lock is appended verbatim ("FOR UPDATE", "FOR SHARE" or "").
func loadClass(ctx context.Context, q querier, classID int64, lock string) (ClassInfo, error) {
	var c ClassInfo
	err := q.QueryRow(ctx, `
		SELECT id, name, status, current_day, total_days, daily_benefit
		FROM classes
		WHERE id = $1
	`+lock, classID).Scan(&c.ID, &c.Name, &c.Status, &c.CurrentDay, &c.TotalDays, &c.DailyBenefit)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrClassNotFound
	}
	return c, err
}
