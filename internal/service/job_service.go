package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"hangarshare/internal/db"
	"hangarshare/internal/metrics"
	"hangarshare/internal/repository"
	"hangarshare/internal/service/payments"
)

// JobService owns the periodic sweeps: expiring stale holds, completing
// finished stays, and polling instant-transfer payments the webhook missed.
type JobService struct {
	jobs       *repository.JobRepository
	payments   *repository.PaymentRepository
	reconcile  *ReconcileService
	pixClient  payments.PixStatusClient
	holdWindow time.Duration
	grace      time.Duration
	log        *logrus.Logger
}

func NewJobService(
	jobs *repository.JobRepository,
	paymentRepo *repository.PaymentRepository,
	reconcile *ReconcileService,
	pixClient payments.PixStatusClient,
	holdWindow, grace time.Duration,
	log *logrus.Logger,
) *JobService {
	return &JobService{
		jobs:       jobs,
		payments:   paymentRepo,
		reconcile:  reconcile,
		pixClient:  pixClient,
		holdWindow: holdWindow,
		grace:      grace,
		log:        log,
	}
}

// ExpireStalePending expires overdue instant-transfer payments, then moves
// reservations whose hold window ran out without a successful payment.
func (s *JobService) ExpireStalePending(ctx context.Context) {
	if n, err := s.jobs.ExpireOverduePayments(ctx); err != nil {
		s.log.WithError(err).Error("expiring overdue payments")
	} else if n > 0 {
		s.log.WithField("count", n).Info("expired overdue payments")
	}

	n, err := s.jobs.ExpireStalePending(ctx, s.holdWindow, s.grace)
	if err != nil {
		s.log.WithError(err).Error("expiring stale reservations")
		return
	}
	if n > 0 {
		metrics.AddSweepTransitions("expired", n)
		s.log.WithField("count", n).Info("expired stale reservations")
	}
}

// CompleteFinished closes confirmed reservations whose stay has ended.
func (s *JobService) CompleteFinished(ctx context.Context) {
	n, err := s.jobs.CompleteFinished(ctx)
	if err != nil {
		s.log.WithError(err).Error("completing finished reservations")
		return
	}
	if n > 0 {
		metrics.AddSweepTransitions("completed", n)
		s.log.WithField("count", n).Info("completed finished reservations")
	}
}

// PollInstantTransfers asks the transfer provider for the state of pending
// payments and reconciles any that resolved. It is the safety net for lost
// webhooks and does nothing when no client is configured.
func (s *JobService) PollInstantTransfers(ctx context.Context) {
	if s.pixClient == nil {
		return
	}
	pending, err := s.payments.ListPendingPix(ctx, 100)
	if err != nil {
		s.log.WithError(err).Error("listing pending instant-transfer payments")
		return
	}
	for i := range pending {
		record := &pending[i]
		status, err := s.pixClient.Status(ctx, record.ProviderRef)
		if err != nil {
			s.log.WithError(err).WithField("ref", record.ProviderRef).Warn("polling payment status")
			continue
		}
		if err := s.reconcile.Apply(ctx, db.ProviderPix, record.ProviderRef, status); err != nil {
			s.log.WithError(err).WithField("ref", record.ProviderRef).Error("reconciling polled payment")
		}
	}
}
