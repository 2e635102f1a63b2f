package market

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

const (
	DefaultLimit = 30
	MaxLimit     = 365
)

const columns = `record_date, sugar_close, sugar_open, usd_cny_rate, bdi_index, import_cost_estimate, updated_at`

const upsertSQL = `
INSERT INTO market_daily (` + columns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (record_date) DO UPDATE SET
    sugar_close = EXCLUDED.sugar_close,
    sugar_open = EXCLUDED.sugar_open,
    usd_cny_rate = EXCLUDED.usd_cny_rate,
    bdi_index = EXCLUDED.bdi_index,
    import_cost_estimate = EXCLUDED.import_cost_estimate,
    updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0) AS inserted`

// UpsertStats counts what an upsert did.
type UpsertStats struct {
	New     int
	Updated int
}

// ListQuery filters List. Zero dates are open bounds.
type ListQuery struct {
	Start time.Time
	End   time.Time
	Limit int
}

// Store persists market_daily rows in PostgreSQL.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// NewStore wraps an open handle; tests pass a sqlmock one.
func NewStore(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Store{db: db, logger: log}
}

// Open connects through the pgx driver and applies pool settings.
func Open(ctx context.Context, cfg types.DatabaseConfig, log logger.Logger) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, errors.Wrapf(err, "market: open %s", cfg.Redacted())
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "market: connect %s", cfg.Redacted())
	}
	return NewStore(db, log), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes rows by record_date in a single transaction.
func (s *Store) Upsert(ctx context.Context, rows []MarketDaily) (stats UpsertStats, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, errors.Wrap(err, "market: begin upsert")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range rows {
		var inserted bool
		err = tx.QueryRowContext(ctx, upsertSQL,
			r.RecordDate, r.SugarClose, r.SugarOpen, r.USDCNYRate,
			r.BDIIndex, r.ImportCostEstimate, r.UpdatedAt,
		).Scan(&inserted)
		if err != nil {
			return UpsertStats{}, errors.Wrapf(err, "market: upsert %s", r.RecordDate.Format(DateLayout))
		}
		if inserted {
			stats.New++
		} else {
			stats.Updated++
		}
	}

	if err = tx.Commit(); err != nil {
		return UpsertStats{}, errors.Wrap(err, "market: commit upsert")
	}
	return stats, nil
}

// List returns rows newest first.
func (s *Store) List(ctx context.Context, q ListQuery) ([]MarketDaily, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	var (
		where []string
		args  []any
	)
	if !q.Start.IsZero() {
		args = append(args, q.Start)
		where = append(where, "record_date >= $1")
	}
	if !q.End.IsZero() {
		args = append(args, q.End)
		where = append(where, "record_date <= $"+strconv.Itoa(len(args)))
	}
	args = append(args, q.Limit)

	query := "SELECT " + columns + " FROM market_daily"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY record_date DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "market: list")
	}
	defer rows.Close()

	out := make([]MarketDaily, 0, q.Limit)
	for rows.Next() {
		m, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "market: list")
}

// Get returns the row for one date or ErrNotFound.
func (s *Store) Get(ctx context.Context, date time.Time) (MarketDaily, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM market_daily WHERE record_date = $1", DateOf(date))
	m, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MarketDaily{}, errors.Wrapf(ErrNotFound, "date %s", date.Format(DateLayout))
	}
	return m, err
}

// Latest returns the most recent row or ErrNotFound.
func (s *Store) Latest(ctx context.Context) (MarketDaily, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM market_daily ORDER BY record_date DESC LIMIT 1")
	m, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MarketDaily{}, ErrNotFound
	}
	return m, err
}

// LatestRecordDate returns the newest record_date; ok is false on an empty table.
func (s *Store) LatestRecordDate(ctx context.Context) (time.Time, bool, error) {
	return s.maxTime(ctx, "SELECT MAX(record_date) FROM market_daily")
}

// LatestUpdate returns the newest updated_at; ok is false on an empty table.
func (s *Store) LatestUpdate(ctx context.Context) (time.Time, bool, error) {
	return s.maxTime(ctx, "SELECT MAX(updated_at) FROM market_daily")
}

func (s *Store) maxTime(ctx context.Context, query string) (time.Time, bool, error) {
	var t sql.NullTime
	if err := s.db.QueryRowContext(ctx, query).Scan(&t); err != nil {
		return time.Time{}, false, errors.Wrap(err, "market: latest")
	}
	return t.Time, t.Valid, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (MarketDaily, error) {
	var (
		m                     MarketDaily
		open, bdi, importCost sql.NullFloat64
	)
	err := sc.Scan(&m.RecordDate, &m.SugarClose, &open, &m.USDCNYRate, &bdi, &importCost, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, err
		}
		return m, errors.Wrap(err, "market: scan row")
	}
	m.RecordDate = DateOf(m.RecordDate)
	m.SugarOpen = nullable(open)
	m.BDIIndex = nullable(bdi)
	m.ImportCostEstimate = nullable(importCost)
	return m, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return float(v.Float64)
}
