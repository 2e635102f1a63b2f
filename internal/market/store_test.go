package market

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rowColumns = []string{
	"record_date", "sugar_close", "sugar_open", "usd_cny_rate",
	"bdi_index", "import_cost_estimate", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, nil), mock
}

func TestStore_UpsertCountsNewAndUpdated(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Date(2025, 12, 5, 2, 0, 0, 0, time.UTC)
	rows := []MarketDaily{
		{RecordDate: day("2025-12-03"), SugarClose: 5512, USDCNYRate: 7.13, BDIIndex: float(1800), ImportCostEstimate: float(5700.1), UpdatedAt: now},
		{RecordDate: day("2025-12-04"), SugarClose: 5520, SugarOpen: float(5510), USDCNYRate: 7.13, BDIIndex: float(1810), ImportCostEstimate: float(5701.1), UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO market_daily .* ON CONFLICT \(record_date\) DO UPDATE`).
		WithArgs(day("2025-12-03"), 5512.0, nil, 7.13, 1800.0, 5700.1, now).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO market_daily`).
		WithArgs(day("2025-12-04"), 5520.0, 5510.0, 7.13, 1810.0, 5701.1, now).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectCommit()

	stats, err := store.Upsert(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, UpsertStats{New: 1, Updated: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertRollsBackOnError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	rows := []MarketDaily{{RecordDate: day("2025-12-03"), SugarClose: 5512, USDCNYRate: 7.13}}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO market_daily`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := store.Upsert(context.Background(), rows)
	assert.ErrorContains(t, err, "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	updated := time.Date(2025, 12, 5, 2, 0, 0, 0, time.UTC)

	t.Run("date range", func(t *testing.T) {
		t.Parallel()

		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .* FROM market_daily WHERE record_date >= \$1 AND record_date <= \$2 ORDER BY record_date DESC LIMIT \$3`).
			WithArgs(day("2025-12-01"), day("2025-12-31"), 10).
			WillReturnRows(sqlmock.NewRows(rowColumns).
				AddRow(day("2025-12-04"), 5520.0, 5510.0, 7.13, 1810.0, 5701.1, updated).
				AddRow(day("2025-12-03"), 5512.0, nil, 7.13, nil, nil, updated))

		got, err := store.List(context.Background(), ListQuery{Start: day("2025-12-01"), End: day("2025-12-31"), Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, day("2025-12-04"), got[0].RecordDate)
		require.NotNil(t, got[0].SugarOpen)
		assert.Equal(t, 5510.0, *got[0].SugarOpen)
		assert.Nil(t, got[1].SugarOpen)
		assert.Nil(t, got[1].BDIIndex)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("end only with default limit", func(t *testing.T) {
		t.Parallel()

		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .* FROM market_daily WHERE record_date <= \$1 ORDER BY record_date DESC LIMIT \$2`).
			WithArgs(day("2025-12-31"), DefaultLimit).
			WillReturnRows(sqlmock.NewRows(rowColumns))

		got, err := store.List(context.Background(), ListQuery{End: day("2025-12-31")})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_GetAndLatest(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	updated := time.Date(2025, 12, 5, 2, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM market_daily WHERE record_date = \$1`).
		WithArgs(day("2025-12-04")).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow(day("2025-12-04"), 5520.0, 5510.0, 7.13, 1810.0, 5701.1, updated))
	mock.ExpectQuery(`SELECT .* FROM market_daily WHERE record_date = \$1`).
		WithArgs(day("2025-12-06")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT .* FROM market_daily ORDER BY record_date DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	got, err := store.Get(context.Background(), day("2025-12-04"))
	require.NoError(t, err)
	assert.Equal(t, 5520.0, got.SugarClose)
	assert.Equal(t, updated, got.UpdatedAt)

	_, err = store.Get(context.Background(), day("2025-12-06"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LatestRecordDate(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT MAX\(record_date\) FROM market_daily`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(day("2025-12-04")))
	mock.ExpectQuery(`SELECT MAX\(updated_at\) FROM market_daily`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	d, ok, err := store.LatestRecordDate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day("2025-12-04"), d)

	_, ok, err = store.LatestUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Migrate(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	names, err := migrationFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"0001_create_market_daily.sql", "0002_market_daily_updated_at_idx.sql"}, names)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sugarnexus_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// First file already applied, second one pending.
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(names[0]).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(names[1]).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_market_daily_updated_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO sugarnexus_migrations`).WithArgs(names[1]).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := store.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
