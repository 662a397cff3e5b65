package payments

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"
	"time"

	"hangarshare/internal/db"
	"hangarshare/internal/entities"
	"hangarshare/internal/pix"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

// PixProvider backs the instant-transfer method. Payment codes are generated
// locally (BRCode + QR image); the money side is reconciled later by webhook
// or by polling, and the code expires with the hold window so a stale hold
// and a stale code die together.
type PixProvider struct {
	key          string
	merchantName string
	merchantCity string
	currency     string
	expiry       time.Duration
	log          *logrus.Logger
}

func NewPixProvider(key, merchantName, merchantCity, currency string, expiry time.Duration, log *logrus.Logger) *PixProvider {
	return &PixProvider{
		key:          key,
		merchantName: merchantName,
		merchantCity: merchantCity,
		currency:     currency,
		expiry:       expiry,
		log:          log,
	}
}

func (p *PixProvider) Kind() string { return db.PaymentMethodInstantTransfer }

func (p *PixProvider) CreatePayment(ctx context.Context, res *db.Reservation) (*db.PaymentRecord, *entities.PaymentNextAction, error) {
	txid := newTxID()
	code, err := pix.BRCode(pix.BRCodeParams{
		Key:          p.key,
		MerchantName: p.merchantName,
		MerchantCity: p.merchantCity,
		TxID:         txid,
		Amount:       res.Total,
	})
	if err != nil {
		return nil, nil, err
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 300)
	if err != nil {
		return nil, nil, err
	}

	expiresAt := time.Now().UTC().Add(p.expiry)
	record := &db.PaymentRecord{
		Provider:    db.ProviderPix,
		ProviderRef: txid,
		Amount:      res.Total,
		Currency:    p.currency,
		Status:      db.PaymentPending,
		ExpiresAt:   sql.NullTime{Time: expiresAt, Valid: true},
	}
	next := &entities.PaymentNextAction{
		Provider:    db.ProviderPix,
		PaymentCode: code,
		QRCodePNG:   base64.StdEncoding.EncodeToString(png),
		ExpiresAt:   &expiresAt,
		Amount:      res.Total,
		Currency:    p.currency,
	}
	return record, next, nil
}

// newTxID builds a 25-char alphanumeric reference, the BRCode txid limit.
func newTxID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return id[:25]
}
