package app

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amir-mohammad-HP/sugarnexus/internal/config"
	"github.com/amir-mohammad-HP/sugarnexus/internal/market"
	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler/schedulertest"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *types.Config {
	cfg := config.Defaults()
	cfg.HTTP.Bind = "127.0.0.1:0"
	cfg.Scheduler.TickInterval = 10 * time.Millisecond
	cfg.Shutdown.Timeout = 5 * time.Second
	cfg.Jobs.ETL.ReconcileOnStartup = false
	// Paused so a test running across 02:00 Shanghai time never fetches.
	cfg.Jobs.ETL.Enabled = false
	return &cfg
}

// mockOpener hands out a sqlmock-backed store that expects migrations to be
// already applied.
func mockOpener(t *testing.T) (StoreOpener, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sugarnexus_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}

	open := func(context.Context, types.DatabaseConfig, logger.Logger) (*market.Store, error) {
		return market.NewStore(db, nil), nil
	}
	return open, mock
}

func runApp(t *testing.T, a *App) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	return done
}

func TestApp_ServesAndShutsDown(t *testing.T) {
	open, mock := mockOpener(t)
	mock.ExpectQuery(`SELECT MAX\(updated_at\)`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(time.Date(2025, 12, 4, 18, 0, 0, 0, time.UTC)))
	mock.ExpectClose()

	a := New(testConfig(), logger.NewNullLogger(), "test", WithStoreOpener(open))
	done := runApp(t, a)

	select {
	case <-a.Ready():
	case err := <-done:
		t.Fatalf("app exited during boot: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("app never became ready")
	}

	resp, err := http.Get("http://" + a.Addr() + "/etl/status")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "daily_etl", body["job_id"])
	assert.Equal(t, "Asia/Shanghai", body["timezone"])
	assert.Equal(t, false, body["enabled"])
	assert.Equal(t, "2025-12-05T02:00:00+08:00", body["last_completed_at"])

	a.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, a.runner.Running())
}

func TestApp_ReconcileFailure(t *testing.T) {
	t.Run("fatal aborts startup", func(t *testing.T) {
		open, mock := mockOpener(t)
		mock.ExpectQuery(`SELECT MAX\(record_date\)`).WillReturnError(errors.New("relation does not exist"))
		mock.ExpectClose()

		cfg := testConfig()
		cfg.Jobs.ETL.ReconcileOnStartup = true
		cfg.Jobs.ETL.ReconcileFatal = true

		err := New(cfg, logger.NewNullLogger(), "test", WithStoreOpener(open)).Run(context.Background())
		assert.ErrorContains(t, err, "relation does not exist")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-fatal keeps serving", func(t *testing.T) {
		open, mock := mockOpener(t)
		mock.ExpectQuery(`SELECT MAX\(record_date\)`).WillReturnError(errors.New("relation does not exist"))
		mock.ExpectClose()

		cfg := testConfig()
		cfg.Jobs.ETL.ReconcileOnStartup = true
		cfg.Jobs.ETL.ReconcileFatal = false

		a := New(cfg, logger.NewNullLogger(), "test", WithStoreOpener(open))
		done := runApp(t, a)
		select {
		case <-a.Ready():
		case err := <-done:
			t.Fatalf("app exited during boot: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("app never became ready")
		}

		a.Stop()
		require.NoError(t, <-done)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestApp_BootErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Timezone = "Local"
	err := New(cfg, logger.NewNullLogger(), "test").Run(context.Background())
	assert.Error(t, err)

	failing := func(context.Context, types.DatabaseConfig, logger.Logger) (*market.Store, error) {
		return nil, errors.New("connection refused")
	}
	err = New(testConfig(), logger.NewNullLogger(), "test", WithStoreOpener(failing)).Run(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestApp_ShutdownKeepsDatabaseForRunningJob(t *testing.T) {
	start := time.Date(2025, 12, 4, 1, 59, 30, 0, time.UTC)

	newApp := func(t *testing.T, action scheduler.Action) (*App, sqlmock.Sqlmock) {
		t.Helper()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		a := New(testConfig(), logger.NewNullLogger(), "test")
		a.store = market.NewStore(db, nil)
		a.runner = scheduler.NewRunner(nil,
			scheduler.WithClock(schedulertest.NewFakeClock(start)),
			scheduler.WithExecutor(scheduler.NewPoolExecutor(1)),
		)
		_, err = a.runner.Register(scheduler.JobDescriptor{
			ID: "daily_etl", Schedule: "* * * * *", Enabled: true, Action: action,
		})
		require.NoError(t, err)
		return a, mock
	}

	t.Run("run outlives the deadline", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		defer close(release)
		a, mock := newApp(t, func(context.Context) (scheduler.JobResult, error) {
			close(started)
			<-release
			return scheduler.Success(nil), nil
		})
		require.Equal(t, 1, a.runner.Tick(start.Add(30*time.Second)))
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, a.stopScheduler(ctx), context.DeadlineExceeded)
		// sqlmock fails an unexpected Close, so a nil error means the
		// store was left open.
		require.NoError(t, a.releaseDatabase(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("runs finished", func(t *testing.T) {
		a, mock := newApp(t, func(context.Context) (scheduler.JobResult, error) {
			return scheduler.Success(nil), nil
		})
		mock.ExpectClose()
		require.Equal(t, 1, a.runner.Tick(start.Add(30*time.Second)))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, a.stopScheduler(ctx))
		require.NoError(t, a.releaseDatabase(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
