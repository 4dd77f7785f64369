package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresQueryHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	last := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("+14155550134").
		WillReturnRows(pgxmock.NewRows([]string{"total", "delivered", "failed", "last_success"}).
			AddRow(10, 7, 3, &last))

	h, err := s.QueryHistory(context.Background(), "+14155550134")
	require.NoError(t, err)
	assert.Equal(t, 10, h.TotalMessages)
	assert.Equal(t, 7, h.DeliveredMessages)
	assert.Equal(t, 3, h.FailedMessages)
	require.NotNil(t, h.LastSuccessAt)
	assert.True(t, h.LastSuccessAt.Equal(last))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryHistoryNoRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("+19999999999").
		WillReturnRows(pgxmock.NewRows([]string{"total", "delivered", "failed", "last_success"}).
			AddRow(0, 0, 0, (*time.Time)(nil)))

	h, err := s.QueryHistory(context.Background(), "+19999999999")
	require.NoError(t, err)
	assert.Equal(t, 0, h.TotalMessages)
	assert.Nil(t, h.LastSuccessAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordDelivery(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO delivery_log`).
		WithArgs(pgxmock.AnyArg(), "+14155550134", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordDelivery(context.Background(), "+14155550134", true, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPruneHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM delivery_log`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := s.PruneHistory(context.Background(), time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "+14155550134", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "+14155550134")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatusNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("running", pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing-run", model.RunStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	result := &model.ValidationResult{Success: true, Confidence: model.ConfidenceRecord{Score: 90}}

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "complete", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRunResult(context.Background(), "run-1", result)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(&model.ValidationResult{Success: true, Confidence: model.ConfidenceRecord{Score: 77}})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, number, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", "+14155550134", "complete", resultJSON, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 77, run.Result.Confidence.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, number, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("missing-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, number, status, result, created_at, updated_at FROM runs`).
		WithArgs("complete", 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", "+14155550134", "complete", []byte(nil), now, now).
			AddRow("run-2", "+4915123456789", "complete", []byte(nil), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete, Limit: 50})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
