package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangarshare/internal/cache"
	"hangarshare/internal/db"
	"hangarshare/internal/entities"
	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/repository"
	"hangarshare/internal/service/payments"
)

type stubProvider struct {
	kind string
	err  error
}

func (p *stubProvider) Kind() string { return p.kind }

func (p *stubProvider) CreatePayment(ctx context.Context, res *db.Reservation) (*db.PaymentRecord, *entities.PaymentNextAction, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	record := &db.PaymentRecord{
		Provider:    db.ProviderStripe,
		ProviderRef: "cs_test",
		Amount:      res.Total,
		Currency:    "brl",
		Status:      db.PaymentPending,
	}
	action := &entities.PaymentNextAction{
		Provider:    db.ProviderStripe,
		RedirectURL: "https://checkout.example/cs_test",
		Amount:      res.Total,
		Currency:    "brl",
	}
	return record, action, nil
}

type stubRefunder struct {
	refunded []string
	err      error
}

func (r *stubRefunder) RefundBySessionID(sessionID string) error {
	if r.err != nil {
		return r.err
	}
	r.refunded = append(r.refunded, sessionID)
	return nil
}

type reservationFixture struct {
	svc      *ReservationService
	mock     sqlmock.Sqlmock
	provider *stubProvider
	refunder *stubRefunder
	notifier *recordingNotifier
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	log := logrus.New()
	availCache := cache.NewAvailabilityCache(nil, 0)
	reservationRepo := repository.NewReservationRepository(conn)
	provider := &stubProvider{kind: db.PaymentMethodCard}
	refunder := &stubRefunder{}
	notifier := &recordingNotifier{}

	svc := NewReservationService(
		repository.NewHangarRepository(conn),
		reservationRepo,
		repository.NewPaymentRepository(conn),
		NewAvailabilityService(reservationRepo, availCache, testHoldWindow, log),
		NewPricingService(1000, "brl"),
		map[string]payments.Provider{db.PaymentMethodCard: provider},
		refunder,
		notifier,
		availCache,
		12*time.Hour,
		log,
	)
	return &reservationFixture{svc: svc, mock: mock, provider: provider, refunder: refunder, notifier: notifier}
}

func hangarRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "hangar_number", "icao_code",
		"hourly_rate", "daily_rate", "monthly_rate", "is_available",
	}).AddRow(1, 2, "H-14", "SBSP", 0, 10000, 0, true)
}

func bookingRequest() *entities.BookingRequest {
	checkIn := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	return &entities.BookingRequest{
		HangarID:      1,
		CheckIn:       checkIn,
		CheckOut:      checkIn.Add(48 * time.Hour),
		PaymentMethod: db.PaymentMethodCard,
		UserID:        7,
		UserName:      "Ana",
		UserEmail:     "ana@example.com",
	}
}

func emptyReservationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "hangar_id", "user_id", "user_name", "user_email", "user_phone",
		"check_in", "check_out", "subtotal", "fee", "total", "payment_method", "status",
		"canceled_by", "canceled_at", "created_at", "updated_at",
	})
}

func TestCreateReservationSuccess(t *testing.T) {
	f := newReservationFixture(t)
	now := time.Now()

	f.mock.ExpectQuery("FROM hangar_listings").WithArgs(int64(1)).WillReturnRows(hangarRow())
	f.mock.ExpectBegin()
	f.mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery("FROM hangar_reservations").WillReturnRows(emptyReservationRows())
	f.mock.ExpectQuery("INSERT INTO hangar_reservations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))
	f.mock.ExpectQuery("INSERT INTO payment_records").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, now, now))
	f.mock.ExpectCommit()

	resp, err := f.svc.CreateReservation(context.Background(), bookingRequest())
	require.NoError(t, err)

	assert.Len(t, resp.Code, 12)
	assert.Equal(t, db.StatusAwaitingPayment, resp.Status)
	assert.Equal(t, int64(20000), resp.Pricing.Subtotal)
	assert.Equal(t, int64(2000), resp.Pricing.Fee)
	assert.Equal(t, int64(22000), resp.Pricing.Total)
	require.NotNil(t, resp.NextAction)
	assert.Equal(t, "https://checkout.example/cs_test", resp.NextAction.RedirectURL)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateReservationConflictRollsBack(t *testing.T) {
	f := newReservationFixture(t)
	req := bookingRequest()
	now := time.Now()

	blocking := emptyReservationRows().AddRow(
		3, "OTHER1", 1, 8, "Bruno", "bruno@example.com", "",
		req.CheckIn, req.CheckOut, 20000, 2000, 22000, "card", db.StatusConfirmed,
		nil, nil, now, now,
	)

	f.mock.ExpectQuery("FROM hangar_listings").WithArgs(int64(1)).WillReturnRows(hangarRow())
	f.mock.ExpectBegin()
	f.mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery("FROM hangar_reservations").WillReturnRows(blocking)
	f.mock.ExpectRollback()

	_, err := f.svc.CreateReservation(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateReservationProviderFailureRollsBack(t *testing.T) {
	f := newReservationFixture(t)
	f.provider.err = errors.New("provider down")
	now := time.Now()

	f.mock.ExpectQuery("FROM hangar_listings").WithArgs(int64(1)).WillReturnRows(hangarRow())
	f.mock.ExpectBegin()
	f.mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery("FROM hangar_reservations").WillReturnRows(emptyReservationRows())
	f.mock.ExpectQuery("INSERT INTO hangar_reservations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))
	f.mock.ExpectRollback()

	_, err := f.svc.CreateReservation(context.Background(), bookingRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPaymentProvider, apperrors.KindOf(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateReservationValidation(t *testing.T) {
	f := newReservationFixture(t)

	past := bookingRequest()
	past.CheckIn = time.Now().UTC().Add(-48 * time.Hour)
	past.CheckOut = time.Now().UTC().Add(-24 * time.Hour)
	_, err := f.svc.CreateReservation(context.Background(), past)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	inverted := bookingRequest()
	inverted.CheckIn, inverted.CheckOut = inverted.CheckOut, inverted.CheckIn
	_, err = f.svc.CreateReservation(context.Background(), inverted)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	badMethod := bookingRequest()
	badMethod.PaymentMethod = "cash"
	_, err = f.svc.CreateReservation(context.Background(), badMethod)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateReservationUnavailableHangar(t *testing.T) {
	f := newReservationFixture(t)

	closed := sqlmock.NewRows([]string{
		"id", "owner_id", "hangar_number", "icao_code",
		"hourly_rate", "daily_rate", "monthly_rate", "is_available",
	}).AddRow(1, 2, "H-14", "SBSP", 0, 10000, 0, false)

	f.mock.ExpectQuery("FROM hangar_listings").WithArgs(int64(1)).WillReturnRows(closed)

	_, err := f.svc.CreateReservation(context.Background(), bookingRequest())
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetForUserHidesForeignReservations(t *testing.T) {
	f := newReservationFixture(t)

	f.mock.ExpectQuery("FROM hangar_reservations").
		WithArgs("ABC123").
		WillReturnRows(reservationRows(5, "ABC123", db.StatusConfirmed))

	_, err := f.svc.GetForUser(context.Background(), "ABC123", 999)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCancelConfirmedCardReservationRefunds(t *testing.T) {
	f := newReservationFixture(t)
	now := time.Now()

	res := emptyReservationRows().AddRow(
		5, "ABC123", 1, 7, "Ana", "ana@example.com", "",
		now.Add(48*time.Hour), now.Add(96*time.Hour), 20000, 2000, 22000, "card", db.StatusConfirmed,
		nil, nil, now, now,
	)

	f.mock.ExpectQuery("FROM hangar_reservations").WithArgs("ABC123").WillReturnRows(res)
	f.mock.ExpectQuery("FROM payment_records").
		WithArgs(int64(5)).
		WillReturnRows(paymentRows(10, 5, db.PaymentSucceeded))
	f.mock.ExpectExec("UPDATE payment_records").WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec("UPDATE hangar_reservations").WillReturnResult(sqlmock.NewResult(0, 1))

	err := f.svc.Cancel(context.Background(), "ABC123", "user", 7, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"cs_123"}, f.refunder.refunded)
	assert.Equal(t, []string{"ABC123"}, f.notifier.canceled)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCancelTooCloseToCheckIn(t *testing.T) {
	f := newReservationFixture(t)
	now := time.Now()

	res := emptyReservationRows().AddRow(
		5, "ABC123", 1, 7, "Ana", "ana@example.com", "",
		now.Add(2*time.Hour), now.Add(48*time.Hour), 20000, 2000, 22000, "card", db.StatusConfirmed,
		nil, nil, now, now,
	)

	f.mock.ExpectQuery("FROM hangar_reservations").WithArgs("ABC123").WillReturnRows(res)

	err := f.svc.Cancel(context.Background(), "ABC123", "user", 7, false)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Empty(t, f.refunder.refunded)
}

func TestCancelTerminalReservation(t *testing.T) {
	f := newReservationFixture(t)
	now := time.Now()

	res := emptyReservationRows().AddRow(
		5, "ABC123", 1, 7, "Ana", "ana@example.com", "",
		now.Add(48*time.Hour), now.Add(96*time.Hour), 20000, 2000, 22000, "card", db.StatusExpired,
		nil, nil, now, now,
	)

	f.mock.ExpectQuery("FROM hangar_reservations").WithArgs("ABC123").WillReturnRows(res)

	err := f.svc.Cancel(context.Background(), "ABC123", "user", 7, false)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}
