package staff

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"tabletap-be/internal/errs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryGetByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{
			"id", "venue_id", "code", "name", "role", "pin_hash", "active", "created_at",
		}).AddRow("staff-1", "venue-1", "A7", "Sam", "manager", "$2a$10$hash", true, time.Now())

		mock.ExpectQuery(`SELECT id, venue_id, code`).
			WithArgs("venue-1", "A7").
			WillReturnRows(rows)

		m, err := NewRepository(db).GetByCode(ctx, "venue-1", "A7")
		require.NoError(t, err)
		assert.Equal(t, "staff-1", m.ID)
		assert.Equal(t, "manager", m.Role)
		assert.True(t, m.Active)
	})

	t.Run("UnknownCode", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, venue_id, code`).
			WithArgs("venue-1", "ZZ").
			WillReturnError(sql.ErrNoRows)

		_, err = NewRepository(db).GetByCode(ctx, "venue-1", "ZZ")
		assert.True(t, errs.Is(err, errs.KindNotFound))
	})
}
