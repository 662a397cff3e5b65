package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangarshare/internal/db"
	"hangarshare/internal/repository"
)

func TestNormalizeProviderStatus(t *testing.T) {
	cases := map[string]string{
		"paid":      db.PaymentSucceeded,
		"Succeeded": db.PaymentSucceeded,
		"COMPLETED": db.PaymentSucceeded,
		"settled":   db.PaymentSucceeded,
		"recebido":  db.PaymentSucceeded,
		"failed":    db.PaymentFailed,
		"rejected":  db.PaymentFailed,
		"cancelled": db.PaymentFailed,
		"expired":   db.PaymentExpired,
		"overdue":   db.PaymentExpired,
		"pending":   db.PaymentPending,
		"whatever":  db.PaymentPending,
		"":          db.PaymentPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeProviderStatus(raw), "status %q", raw)
	}
}

type recordingNotifier struct {
	confirmed []string
	canceled  []string
}

func (n *recordingNotifier) ReservationConfirmed(res *db.Reservation) {
	n.confirmed = append(n.confirmed, res.Code)
}

func (n *recordingNotifier) ReservationCanceled(res *db.Reservation) {
	n.canceled = append(n.canceled, res.Code)
}

func newReconcileFixture(t *testing.T) (*ReconcileService, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	notifier := &recordingNotifier{}
	svc := NewReconcileService(
		repository.NewReservationRepository(conn),
		repository.NewPaymentRepository(conn),
		notifier,
		logrus.New(),
	)
	return svc, mock, notifier
}

func paymentRows(id, reservationID int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "reservation_id", "provider", "provider_ref", "amount", "currency",
		"status", "expires_at", "created_at", "updated_at",
	}).AddRow(id, reservationID, "stripe", "cs_123", 22000, "brl", status, nil, now, now)
}

func reservationRows(id int64, code, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "code", "hangar_id", "user_id", "user_name", "user_email", "user_phone",
		"check_in", "check_out", "subtotal", "fee", "total", "payment_method", "status",
		"canceled_by", "canceled_at", "created_at", "updated_at",
	}).AddRow(id, code, 1, 7, "Ana", "ana@example.com", "",
		now.Add(24*time.Hour), now.Add(72*time.Hour), 20000, 2000, 22000, "card", status,
		nil, nil, now, now)
}

func TestApplySucceededConfirmsReservation(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentPending))
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM hangar_reservations").
		WithArgs(int64(5)).
		WillReturnRows(reservationRows(5, "ABC123", db.StatusAwaitingPayment))
	mock.ExpectExec("UPDATE hangar_reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Apply(context.Background(), "stripe", "cs_123", "paid")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC123"}, notifier.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReplayIsANoop(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentSucceeded))
	// Record guard matches zero rows; the re-read shows the stored outcome
	// agrees, and the reservation guard then matches zero rows too.
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentSucceeded))
	mock.ExpectQuery("FROM hangar_reservations").
		WithArgs(int64(5)).
		WillReturnRows(reservationRows(5, "ABC123", db.StatusConfirmed))
	mock.ExpectExec("UPDATE hangar_reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Apply(context.Background(), "stripe", "cs_123", "paid")
	require.NoError(t, err)
	assert.Empty(t, notifier.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFinishesInterruptedConfirmation(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	// A crash between the two writes left the record succeeded while the
	// reservation still awaits payment; the redelivery must complete it.
	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentSucceeded))
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentSucceeded))
	mock.ExpectQuery("FROM hangar_reservations").
		WithArgs(int64(5)).
		WillReturnRows(reservationRows(5, "ABC123", db.StatusAwaitingPayment))
	mock.ExpectExec("UPDATE hangar_reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Apply(context.Background(), "stripe", "cs_123", "paid")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC123"}, notifier.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMismatchedOutcomeIsIgnored(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentFailed))
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentFailed))

	err := svc.Apply(context.Background(), "stripe", "cs_123", "paid")
	require.NoError(t, err)
	assert.Empty(t, notifier.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyNonFinalStatusIsIgnored(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs("pix", "TX1").
		WillReturnRows(paymentRows(10, 5, db.PaymentPending))

	err := svc.Apply(context.Background(), "pix", "TX1", "processing")
	require.NoError(t, err)
	assert.Empty(t, notifier.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFailedMarksReservationFailed(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs("pix", "TX1").
		WillReturnRows(paymentRows(10, 5, db.PaymentPending))
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM hangar_reservations").
		WithArgs(int64(5)).
		WillReturnRows(reservationRows(5, "ABC123", db.StatusAwaitingPayment))
	mock.ExpectExec("UPDATE hangar_reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Apply(context.Background(), "pix", "TX1", "rejected")
	require.NoError(t, err)
	assert.Empty(t, notifier.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRefundCancelsReservation(t *testing.T) {
	svc, mock, notifier := newReconcileFixture(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs("stripe", "cs_123").
		WillReturnRows(paymentRows(10, 5, db.PaymentSucceeded))
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM hangar_reservations").
		WithArgs(int64(5)).
		WillReturnRows(reservationRows(5, "ABC123", db.StatusConfirmed))
	mock.ExpectExec("UPDATE hangar_reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ApplyRefund(context.Background(), "stripe", "cs_123")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC123"}, notifier.canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
