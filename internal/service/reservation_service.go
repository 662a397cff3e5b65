package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hangarshare/internal/cache"
	"hangarshare/internal/db"
	"hangarshare/internal/entities"
	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/metrics"
	"hangarshare/internal/repository"
	"hangarshare/internal/service/payments"
)

// Refunder issues a refund for a completed card checkout session.
type Refunder interface {
	RefundBySessionID(sessionID string) error
}

type ReservationService struct {
	hangars      *repository.HangarRepository
	repo         *repository.ReservationRepository
	paymentRepo  *repository.PaymentRepository
	availability *AvailabilityService
	pricing      *PricingService
	providers    map[string]payments.Provider
	refunder     Refunder
	notifier     Notifier
	cache        *cache.AvailabilityCache
	cancelCutoff time.Duration
	log          *logrus.Logger
}

func NewReservationService(
	hangars *repository.HangarRepository,
	repo *repository.ReservationRepository,
	paymentRepo *repository.PaymentRepository,
	availability *AvailabilityService,
	pricing *PricingService,
	providers map[string]payments.Provider,
	refunder Refunder,
	notifier Notifier,
	availCache *cache.AvailabilityCache,
	cancelCutoff time.Duration,
	log *logrus.Logger,
) *ReservationService {
	return &ReservationService{
		hangars:      hangars,
		repo:         repo,
		paymentRepo:  paymentRepo,
		availability: availability,
		pricing:      pricing,
		providers:    providers,
		refunder:     refunder,
		notifier:     notifier,
		cache:        availCache,
		cancelCutoff: cancelCutoff,
		log:          log,
	}
}

// Quote prices a stay without creating anything.
func (s *ReservationService) Quote(ctx context.Context, hangarID int64, checkIn, checkOut time.Time) (*entities.PriceBreakdown, error) {
	if err := validateWindow(checkIn, checkOut); err != nil {
		return nil, err
	}
	hangar, err := s.hangars.GetByID(ctx, hangarID)
	if err != nil {
		return nil, apperrors.NotFound("hangar not found", err)
	}
	return s.pricing.Quote(hangar, checkIn, checkOut)
}

// CreateReservation runs the full booking flow: validation, pricing, and the
// locked transaction that inserts the reservation together with its payment
// record. The provider call happens inside the transaction, so a provider
// failure leaves nothing behind.
func (s *ReservationService) CreateReservation(ctx context.Context, req *entities.BookingRequest) (*entities.BookingResponse, error) {
	if err := validateWindow(req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}

	provider, ok := s.providers[req.PaymentMethod]
	if !ok {
		return nil, apperrors.Validation("unsupported payment method: "+req.PaymentMethod, nil)
	}

	hangar, err := s.hangars.GetByID(ctx, req.HangarID)
	if err != nil {
		return nil, apperrors.NotFound("hangar not found", err)
	}
	if !hangar.IsAvailable {
		return nil, apperrors.Conflict("hangar is not open for reservations", nil)
	}

	pricing, err := s.pricing.Quote(hangar, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	res := &db.Reservation{
		Code:          newReservationCode(),
		HangarID:      hangar.ID,
		UserID:        req.UserID,
		UserName:      req.UserName,
		UserEmail:     req.UserEmail,
		UserPhone:     req.UserPhone,
		CheckIn:       req.CheckIn.UTC(),
		CheckOut:      req.CheckOut.UTC(),
		Subtotal:      pricing.Subtotal,
		Fee:           pricing.Fee,
		Total:         pricing.Total,
		PaymentMethod: req.PaymentMethod,
		Status:        db.StatusAwaitingPayment,
	}

	var nextAction *entities.PaymentNextAction
	err = s.repo.CreateWithPayment(ctx, res,
		func(existing []db.Reservation) error {
			if !s.availability.FreeAmong(existing, res.CheckIn, res.CheckOut, time.Now().UTC()) {
				metrics.IncBookingConflict()
				return apperrors.Conflict("hangar is already reserved for the requested window", nil)
			}
			return nil
		},
		func(ctx context.Context, tx *sql.Tx, reservationID int64) error {
			record, action, err := provider.CreatePayment(ctx, res)
			if err != nil {
				return apperrors.PaymentProvider("payment could not be initiated", err)
			}
			record.ReservationID = reservationID
			if err := s.paymentRepo.InsertTx(ctx, tx, record); err != nil {
				return err
			}
			nextAction = action
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCreated(req.PaymentMethod)
	s.cache.Invalidate(ctx, hangar.ID)
	s.log.WithFields(logrus.Fields{
		"code":      res.Code,
		"hangar_id": hangar.ID,
		"method":    req.PaymentMethod,
		"total":     res.Total,
	}).Info("reservation created")

	return &entities.BookingResponse{
		Code:       res.Code,
		Status:     res.Status,
		CheckIn:    res.CheckIn,
		CheckOut:   res.CheckOut,
		Pricing:    *pricing,
		NextAction: nextAction,
	}, nil
}

// GetForUser returns a reservation only to its owner. A mismatch is reported
// as not found so codes cannot be probed.
func (s *ReservationService) GetForUser(ctx context.Context, code string, userID int64) (*entities.ReservationResponse, error) {
	res, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.NotFound("reservation not found", err)
	}
	if res.UserID != userID {
		return nil, apperrors.NotFound("reservation not found", nil)
	}
	return toReservationResponse(res), nil
}

// Cancel cancels a reservation. Users may cancel their own while it awaits
// payment, or a confirmed one up to the cutoff before check-in; operators can
// cancel regardless of ownership and cutoff. A confirmed card reservation
// with a succeeded payment is refunded through the card provider first.
func (s *ReservationService) Cancel(ctx context.Context, code, actor string, userID int64, operator bool) error {
	res, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return apperrors.NotFound("reservation not found", err)
	}
	if !operator && res.UserID != userID {
		return apperrors.NotFound("reservation not found", nil)
	}

	switch res.Status {
	case db.StatusAwaitingPayment:
	case db.StatusConfirmed:
		if !operator && time.Until(res.CheckIn) < s.cancelCutoff {
			return apperrors.Conflict("reservation can no longer be canceled this close to check-in", nil)
		}
	default:
		return apperrors.Conflict("reservation is already "+res.Status, nil)
	}

	if res.Status == db.StatusConfirmed && res.PaymentMethod == db.PaymentMethodCard {
		record, err := s.paymentRepo.LatestByReservation(ctx, res.ID)
		if err != nil {
			return err
		}
		if record.Status == db.PaymentSucceeded {
			if err := s.refunder.RefundBySessionID(record.ProviderRef); err != nil {
				return apperrors.PaymentProvider("refund failed", err)
			}
			if _, err := s.paymentRepo.UpdateStatus(ctx, record.ID, []string{db.PaymentSucceeded}, db.PaymentRefunded); err != nil {
				return err
			}
		}
	}

	canceled, err := s.repo.Cancel(ctx, res.ID, actor)
	if err != nil {
		return err
	}
	if !canceled {
		// Lost a race against a sweep or a webhook, nothing left to do.
		return apperrors.Conflict("reservation is no longer cancelable", nil)
	}

	res.Status = db.StatusCanceled
	s.notifier.ReservationCanceled(res)
	s.cache.Invalidate(ctx, res.HangarID)
	s.log.WithFields(logrus.Fields{"code": res.Code, "actor": actor}).Info("reservation canceled")
	return nil
}

// ListForOperator lists reservations filtered by date, status and hangar.
func (s *ReservationService) ListForOperator(ctx context.Context, date, status string, hangarID int64) (*entities.ReservationsList, error) {
	rows, err := s.repo.List(ctx, date, status, hangarID)
	if err != nil {
		return nil, err
	}
	list := &entities.ReservationsList{
		Total:        len(rows),
		Reservations: make([]entities.ReservationResponse, 0, len(rows)),
	}
	for i := range rows {
		list.Reservations = append(list.Reservations, *toReservationResponse(&rows[i]))
	}
	return list, nil
}

func validateWindow(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return apperrors.Validation("check_in and check_out are required", nil)
	}
	if !checkIn.Before(checkOut) {
		return apperrors.Validation("check_in must be before check_out", nil)
	}
	if checkIn.Before(time.Now().UTC().Add(-time.Minute)) {
		return apperrors.Validation("check_in must not be in the past", nil)
	}
	return nil
}

func newReservationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}

func toReservationResponse(res *db.Reservation) *entities.ReservationResponse {
	out := &entities.ReservationResponse{
		Code:          res.Code,
		HangarID:      res.HangarID,
		UserName:      res.UserName,
		UserEmail:     res.UserEmail,
		UserPhone:     res.UserPhone,
		CheckIn:       res.CheckIn,
		CheckOut:      res.CheckOut,
		Subtotal:      res.Subtotal,
		Fee:           res.Fee,
		Total:         res.Total,
		PaymentMethod: res.PaymentMethod,
		Status:        res.Status,
		CreatedAt:     res.CreatedAt,
		UpdatedAt:     res.UpdatedAt,
	}
	if res.CanceledBy.Valid {
		out.CanceledBy = res.CanceledBy.String
	}
	if res.CanceledAt.Valid {
		t := res.CanceledAt.Time
		out.CanceledAt = &t
	}
	return out
}
