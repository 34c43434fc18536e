package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/dtn-ai-router/models"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return Wrap(sqlDB, zap.NewNop()), mock
}

func TestDispatchLogRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("success record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDispatchLogRepository(db, zap.NewNop())

		rec := models.NewDispatchRecord("t1", "m.echo", 200, 12*time.Millisecond)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dispatch_log")).
			WithArgs(rec.ID, "t1", "m.echo", 200, nil, nil, 12, rec.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Insert(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDispatchLogRepository(db, zap.NewNop())

		rec := models.NewDispatchRecord("t2", "m.missing", 400, time.Millisecond).
			WithError("unsupported_model", "Model m.missing not supported")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dispatch_log")).
			WithArgs(rec.ID, "t2", "m.missing", 400, "unsupported_model", "Model m.missing not supported", 1, rec.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Insert(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDispatchLogRepository(db, zap.NewNop())

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dispatch_log")).
			WillReturnError(sql.ErrConnDone)

		err := repo.Insert(ctx, models.NewDispatchRecord("t3", "m", 200, 0))
		require.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Contains(t, err.Error(), "failed to insert dispatch record")
	})
}

func TestDispatchLogRepository_ListByRequestID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDispatchLogRepository(db, zap.NewNop())

	id1, id2 := uuid.New(), uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "request_id", "model", "status_code", "error_kind", "error_message", "latency_ms", "created_at"}).
		AddRow(id2.String(), "dup", "m.echo", 500, "internal_error", "Processing error: boom", 40, now).
		AddRow(id1.String(), "dup", "m.echo", 200, nil, nil, 5, now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM dispatch_log")).
		WithArgs("dup").
		WillReturnRows(rows)

	records, err := repo.ListByRequestID(context.Background(), "dup")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, id2, records[0].ID)
	require.NotNil(t, records[0].ErrorKind)
	assert.Equal(t, "internal_error", *records[0].ErrorKind)
	assert.False(t, records[0].Succeeded())

	assert.Equal(t, id1, records[1].ID)
	assert.Nil(t, records[1].ErrorKind)
	assert.Nil(t, records[1].ErrorMessage)
	assert.True(t, records[1].Succeeded())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_InitSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS dispatch_log")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
