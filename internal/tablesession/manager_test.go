package tablesession

import (
	"context"
	"testing"

	"tabletap-be/internal/errs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Seat(t *testing.T) {
	ctx := context.Background()

	t.Run("OpensReservedSession", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO table_sessions`).
			WithArgs(sqlmock.AnyArg(), "venue-1", "T4", StatusReserved, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		s, err := NewManager(db).Seat(ctx, "venue-1", "T4")
		assert.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, StatusReserved, s.Status)
		assert.Nil(t, s.BoundOrderID)
	})

	t.Run("AlreadySeated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO table_sessions`).
			WillReturnError(&pq.Error{Code: pqUniqueViolation})

		_, err = NewManager(db).Seat(ctx, "venue-1", "T4")
		assert.True(t, errs.Is(err, errs.KindInvalidTransition))
	})
}

func TestManager_Clear(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE table_sessions`).
		WithArgs(StatusFree, sqlmock.AnyArg(), "venue-1", "T4").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, NewManager(db).Clear(context.Background(), "venue-1", "T4"))
}
