package order

import (
	"context"
	"errors"
	"testing"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewRepository(db), mock, func() { db.Close() }
}

func TestRepositoryCreate(t *testing.T) {
	t.Run("CounterOrder", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Create(context.Background(), &Order{
			ID:              "ord-1",
			VenueID:         "venue-1",
			FulfillmentType: FulfillmentCounter,
			QRType:          QRCollection,
			PaymentMethod:   PayNow,
			Status:          StatusPlaced,
			PaymentStatus:   PaymentUnpaid,
			TotalAmount:     1200,
			Currency:        "GBP",
			Items:           []Item{{Name: "Flat White", UnitPrice: 1200, Quantity: 1}},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TableOrderSeatsSessionInSameTx", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Bind to the open unbound session for the table.
		mock.ExpectQuery(`UPDATE table_sessions`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sess-1"))
		mock.ExpectCommit()

		err := repo.Create(context.Background(), &Order{
			ID:              "ord-2",
			VenueID:         "venue-1",
			FulfillmentType: FulfillmentTable,
			TableRef:        utils.StrPtr("T4"),
			QRType:          QRDineIn,
			PaymentMethod:   PayLater,
			Status:          StatusPlaced,
			PaymentStatus:   PaymentUnpaid,
			TotalAmount:     950,
			Currency:        "GBP",
			Items:           []Item{{Name: "Burger", UnitPrice: 950, Quantity: 1}},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TableTakenRollsBack", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE table_sessions`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT bound_order_id`).
			WillReturnRows(sqlmock.NewRows([]string{"bound_order_id"}).AddRow("ord-other"))
		mock.ExpectRollback()

		err := repo.Create(context.Background(), &Order{
			ID:              "ord-3",
			VenueID:         "venue-1",
			FulfillmentType: FulfillmentTable,
			TableRef:        utils.StrPtr("T4"),
			QRType:          QRDineIn,
			PaymentMethod:   PayLater,
			Items:           []Item{{Name: "Burger", UnitPrice: 950, Quantity: 1}},
		})
		assert.True(t, errs.Is(err, errs.KindInvalidTransition))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryAdvanceStatus(t *testing.T) {
	t.Run("Wins", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.AdvanceStatus(context.Background(), "venue-1", "ord-1", StatusPlaced, StatusInPrep)
		assert.NoError(t, err)
	})

	t.Run("LosesRaceToConcurrentAdvance", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		// Another worker already moved the order to IN_PREP; zero rows match.
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT order_status`).
			WillReturnRows(sqlmock.NewRows([]string{"order_status"}).AddRow("IN_PREP"))

		err := repo.AdvanceStatus(context.Background(), "venue-1", "ord-1", StatusPlaced, StatusInPrep)
		assert.True(t, errs.Is(err, errs.KindInvalidTransition))
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT order_status`).
			WillReturnRows(sqlmock.NewRows([]string{"order_status"}))

		err := repo.AdvanceStatus(context.Background(), "venue-1", "ord-x", StatusPlaced, StatusInPrep)
		assert.True(t, errs.Is(err, errs.KindNotFound))
	})
}

func TestRepositoryCompleteTx(t *testing.T) {
	t.Run("FreesTableInSameTx", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE table_sessions`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CompleteTx(context.Background(), "venue-1", "ord-1", false, "", "")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotServing", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT order_status`).
			WillReturnRows(sqlmock.NewRows([]string{"order_status"}).AddRow("READY"))
		mock.ExpectRollback()

		err := repo.CompleteTx(context.Background(), "venue-1", "ord-1", false, "", "")
		assert.True(t, errs.Is(err, errs.KindInvalidTransition))
	})

	t.Run("ForcedNeverOverridesTerminal", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT order_status`).
			WillReturnRows(sqlmock.NewRows([]string{"order_status"}).AddRow("CANCELLED"))
		mock.ExpectRollback()

		err := repo.CompleteTx(context.Background(), "venue-1", "ord-1", true, "mgr-1", "stuck ticket")
		assert.True(t, errs.Is(err, errs.KindInvalidTransition))
	})
}

func TestRepositoryCancelTx(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE table_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CancelTx(context.Background(), "venue-1", "ord-1", "kitchen closed")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryApplyPayment(t *testing.T) {
	t.Run("Applies", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ApplyPayment(context.Background(), "venue-1", "ord-1", "cs_1", "pi_1")
		assert.NoError(t, err)
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT payment_status`).
			WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow("PAID"))

		err := repo.ApplyPayment(context.Background(), "venue-1", "ord-1", "cs_1", "pi_1")
		assert.True(t, errors.Is(err, ErrAlreadyPaid))
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT payment_status`).
			WillReturnRows(sqlmock.NewRows([]string{"payment_status"}))

		err := repo.ApplyPayment(context.Background(), "venue-1", "ord-x", "cs_1", "pi_1")
		assert.True(t, errs.Is(err, errs.KindNotFound))
	})
}

func TestRepositoryBindSessionRef(t *testing.T) {
	t.Run("Binds", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.BindSessionRef(context.Background(), "venue-1", "ord-1", "cs_1"))
	})

	t.Run("AlreadyBound", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.BindSessionRef(context.Background(), "venue-1", "ord-1", "cs_2")
		assert.True(t, errs.Is(err, errs.KindInvalidTransition))
	})
}

func TestRepositoryApplyRefund(t *testing.T) {
	t.Run("FirstWriterWins", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ApplyRefund(context.Background(), "venue-1", "ord-1",
			0, 400, PaymentPartiallyRefunded, "re_1", "cold food")
		assert.NoError(t, err)
	})

	t.Run("LoserObservesRace", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.ApplyRefund(context.Background(), "venue-1", "ord-1",
			0, 400, PaymentPartiallyRefunded, "re_1", "race")
		assert.True(t, errors.Is(err, ErrRefundRaced))
	})
}
