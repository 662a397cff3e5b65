package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"hangarshare/internal/db"
	"hangarshare/internal/metrics"
	"hangarshare/internal/repository"
)

// ReconcileService applies provider payment outcomes to payment records and
// reservations. Every update is status-guarded, so replayed webhooks and
// concurrent poller deliveries degrade to no-ops.
type ReconcileService struct {
	reservations *repository.ReservationRepository
	payments     *repository.PaymentRepository
	notifier     Notifier
	log          *logrus.Logger
}

func NewReconcileService(
	reservations *repository.ReservationRepository,
	payments *repository.PaymentRepository,
	notifier Notifier,
	log *logrus.Logger,
) *ReconcileService {
	return &ReconcileService{
		reservations: reservations,
		payments:     payments,
		notifier:     notifier,
		log:          log,
	}
}

// NormalizeProviderStatus maps the status vocabulary of different providers
// onto the internal payment states. Unknown values stay pending.
func NormalizeProviderStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "completed", "complete", "succeeded", "success", "confirmed", "settled", "received", "concluido", "concluída", "recebido", "approved":
		return db.PaymentSucceeded
	case "failed", "rejected", "canceled", "cancelled", "refused", "chargeback", "devolvido":
		return db.PaymentFailed
	case "expired", "overdue", "expirado":
		return db.PaymentExpired
	default:
		return db.PaymentPending
	}
}

// Apply resolves a provider notification against the stored payment record.
// Records unknown to us are reported as not found so webhook handlers can
// still acknowledge the delivery.
func (s *ReconcileService) Apply(ctx context.Context, provider, providerRef, providerStatus string) error {
	record, err := s.payments.GetByProviderRef(ctx, provider, providerRef)
	if err != nil {
		return err
	}

	target := NormalizeProviderStatus(providerStatus)
	if target == db.PaymentPending {
		s.log.WithFields(logrus.Fields{
			"provider": provider,
			"ref":      providerRef,
			"status":   providerStatus,
		}).Info("ignoring non-final provider status")
		return nil
	}

	updated, err := s.payments.UpdateStatus(ctx, record.ID, []string{db.PaymentPending}, target)
	if err != nil {
		return err
	}
	if !updated {
		// The record already left pending. Re-read it: a redelivery whose
		// stored outcome matches must still drive the reservation forward,
		// or a crash between the two writes would strand a paid reservation
		// in awaiting_payment with every retry swallowed as a replay.
		record, err = s.payments.GetByProviderRef(ctx, provider, providerRef)
		if err != nil {
			return err
		}
		if record.Status != target {
			metrics.IncPaymentEvent(provider, "replay")
			s.log.WithFields(logrus.Fields{
				"provider": provider,
				"ref":      providerRef,
				"stored":   record.Status,
				"incoming": target,
			}).Warn("provider status does not match stored payment outcome")
			return nil
		}
		metrics.IncPaymentEvent(provider, "replay")
	} else {
		metrics.IncPaymentEvent(provider, target)
	}

	res, err := s.reservations.GetByID(ctx, record.ReservationID)
	if err != nil {
		return err
	}

	switch target {
	case db.PaymentSucceeded:
		moved, err := s.reservations.UpdateStatus(ctx, res.ID, []string{db.StatusAwaitingPayment}, db.StatusConfirmed)
		if err != nil {
			return err
		}
		if moved {
			res.Status = db.StatusConfirmed
			s.notifier.ReservationConfirmed(res)
			s.log.WithField("code", res.Code).Info("reservation confirmed")
		} else {
			// Payment landed after the hold expired or the user canceled.
			s.log.WithFields(logrus.Fields{
				"code":   res.Code,
				"status": res.Status,
			}).Warn("payment succeeded for a reservation no longer awaiting payment")
		}
	case db.PaymentFailed:
		if _, err := s.reservations.UpdateStatus(ctx, res.ID, []string{db.StatusAwaitingPayment}, db.StatusFailed); err != nil {
			return err
		}
	case db.PaymentExpired:
		if _, err := s.reservations.UpdateStatus(ctx, res.ID, []string{db.StatusAwaitingPayment}, db.StatusExpired); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRefund marks a succeeded payment refunded and cancels the reservation
// on behalf of the provider.
func (s *ReconcileService) ApplyRefund(ctx context.Context, provider, providerRef string) error {
	record, err := s.payments.GetByProviderRef(ctx, provider, providerRef)
	if err != nil {
		return err
	}

	updated, err := s.payments.UpdateStatus(ctx, record.ID, []string{db.PaymentSucceeded}, db.PaymentRefunded)
	if err != nil {
		return err
	}
	if !updated {
		// Same crash-between-writes hazard as Apply: finish the
		// cancellation when the stored record is already refunded.
		record, err = s.payments.GetByProviderRef(ctx, provider, providerRef)
		if err != nil {
			return err
		}
		if record.Status != db.PaymentRefunded {
			metrics.IncPaymentEvent(provider, "replay")
			return nil
		}
		metrics.IncPaymentEvent(provider, "replay")
	} else {
		metrics.IncPaymentEvent(provider, db.PaymentRefunded)
	}

	res, err := s.reservations.GetByID(ctx, record.ReservationID)
	if err != nil {
		return err
	}
	canceled, err := s.reservations.Cancel(ctx, res.ID, "payment-provider")
	if err != nil {
		return err
	}
	if canceled {
		res.Status = db.StatusCanceled
		s.notifier.ReservationCanceled(res)
		s.log.WithField("code", res.Code).Info("reservation canceled after refund")
	}
	return nil
}
