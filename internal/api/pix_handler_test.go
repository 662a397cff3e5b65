package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangarshare/internal/db"
	"hangarshare/internal/repository"
	"hangarshare/internal/service"
)

func newPixHandler(t *testing.T) (*PixWebhookHandler, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reconcile := service.NewReconcileService(
		repository.NewReservationRepository(conn),
		repository.NewPaymentRepository(conn),
		service.NoopNotifier{},
		logrus.New(),
	)
	return NewPixWebhookHandler("whsec", reconcile, logrus.New()), mock
}

func postPix(h *PixWebhookHandler, signature, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/webhooks/pix", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(pixSignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

func TestPixWebhookRejectsBadSignature(t *testing.T) {
	h, _ := newPixHandler(t)

	rec := postPix(h, "", `{"txid":"TX1","status":"paid"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postPix(h, "wrong", `{"txid":"TX1","status":"paid"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPixWebhookRejectsIncompletePayload(t *testing.T) {
	h, _ := newPixHandler(t)

	rec := postPix(h, "whsec", `{"status":"paid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postPix(h, "whsec", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPixWebhookAppliesPayment(t *testing.T) {
	h, mock := newPixHandler(t)
	now := time.Now()

	mock.ExpectQuery("FROM payment_records").
		WithArgs(db.ProviderPix, "TX1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "reservation_id", "provider", "provider_ref", "amount", "currency",
			"status", "expires_at", "created_at", "updated_at",
		}).AddRow(10, 5, "pix", "TX1", 22000, "brl", db.PaymentPending, nil, now, now))
	mock.ExpectExec("UPDATE payment_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM hangar_reservations").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "hangar_id", "user_id", "user_name", "user_email", "user_phone",
			"check_in", "check_out", "subtotal", "fee", "total", "payment_method", "status",
			"canceled_by", "canceled_at", "created_at", "updated_at",
		}).AddRow(5, "ABC123", 1, 7, "Ana", "ana@example.com", "",
			now.Add(24*time.Hour), now.Add(72*time.Hour), 20000, 2000, 22000, "instant-transfer",
			db.StatusAwaitingPayment, nil, nil, now, now))
	mock.ExpectExec("UPDATE hangar_reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := postPix(h, "whsec", `{"txid":"TX1","status":"paid"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPixWebhookReturns500OnStorageFailure(t *testing.T) {
	h, mock := newPixHandler(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs(db.ProviderPix, "TX1").
		WillReturnError(assert.AnError)

	rec := postPix(h, "whsec", `{"txid":"TX1","status":"paid"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPixWebhookAcksUnknownReference(t *testing.T) {
	h, mock := newPixHandler(t)

	mock.ExpectQuery("FROM payment_records").
		WithArgs(db.ProviderPix, "NOPE").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "reservation_id", "provider", "provider_ref", "amount", "currency",
			"status", "expires_at", "created_at", "updated_at",
		}))

	rec := postPix(h, "whsec", `{"tx_id":"NOPE","state":"paid"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
