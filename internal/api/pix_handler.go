package api

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"hangarshare/internal/db"
	"hangarshare/internal/service"
)

const pixSignatureHeader = "X-Webhook-Signature"

type PixWebhookHandler struct {
	secret    string
	reconcile *service.ReconcileService
	log       *logrus.Logger
}

func NewPixWebhookHandler(secret string, reconcile *service.ReconcileService, log *logrus.Logger) *PixWebhookHandler {
	return &PixWebhookHandler{secret: secret, reconcile: reconcile, log: log}
}

// pixEvent tolerates the field spellings used by different PSP gateways.
type pixEvent struct {
	TxID   string `json:"txid"`
	TxID2  string `json:"tx_id"`
	Status string `json:"status"`
	State  string `json:"state"`
}

func (e *pixEvent) txid() string {
	if e.TxID != "" {
		return e.TxID
	}
	return e.TxID2
}

func (e *pixEvent) status() string {
	if e.Status != "" {
		return e.Status
	}
	return e.State
}

func (h *PixWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get(pixSignatureHeader)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(h.secret)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 65536)
	var event pixEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if event.txid() == "" || event.status() == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.reconcile.Apply(r.Context(), db.ProviderPix, event.txid(), event.status()); err != nil {
		// Unknown references are acknowledged so the gateway stops
		// retrying; anything else gets a 500 so it does retry.
		if errors.Is(err, sql.ErrNoRows) {
			h.log.WithError(err).WithField("txid", event.txid()).Warn("pix event did not match a payment record")
		} else {
			h.log.WithError(err).WithField("txid", event.txid()).Error("reconciling pix event")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
