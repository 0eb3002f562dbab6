// internal/dedup/store_test.go
package dedup

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "formsync/internal/common/errors"
)

func newMockSQLiteStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db), mock
}

func TestSQLStore_Init(t *testing.T) {
	store, mock := newMockSQLiteStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS delivered_records`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_IsNew(t *testing.T) {
	t.Run("unseen id is new", func(t *testing.T) {
		store, mock := newMockSQLiteStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM delivered_records WHERE record_id = ?`)).
			WithArgs("r2").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))

		isNew, err := store.IsNew(context.Background(), "r2")
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("delivered id is not new", func(t *testing.T) {
		store, mock := newMockSQLiteStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM delivered_records WHERE record_id = ?`)).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		isNew, err := store.IsNew(context.Background(), "r1")
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("store failure is surfaced, not skipped", func(t *testing.T) {
		store, mock := newMockSQLiteStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM delivered_records`)).
			WillReturnError(assert.AnError)

		_, err := store.IsNew(context.Background(), "r1")
		require.Error(t, err)
		assert.Equal(t, commonerrors.ErrCodeStoreError, commonerrors.CodeOf(err))
	})
}

func TestSQLStore_MarkDelivered_Idempotent(t *testing.T) {
	store, mock := newMockSQLiteStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT OR IGNORE INTO delivered_records (record_id) VALUES (?)`)).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// second mark inserts nothing and still succeeds
	mock.ExpectExec(regexp.QuoteMeta(`INSERT OR IGNORE INTO delivered_records (record_id) VALUES (?)`)).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, store.MarkDelivered(ctx, "r1"))
	require.NoError(t, store.MarkDelivered(ctx, "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Placeholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM delivered_records WHERE record_id = $1`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO delivered_records (record_id) VALUES ($1) ON CONFLICT (record_id) DO NOTHING`)).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()

	isNew, err := store.IsNew(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, isNew)

	require.NoError(t, store.MarkDelivered(ctx, "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Reset(t *testing.T) {
	store, mock := newMockSQLiteStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM delivered_records`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
