package service

import (
	"context"
	"time"

	"hangarshare/internal/cache"
	"hangarshare/internal/db"
	"hangarshare/internal/entities"
	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/repository"

	"github.com/sirupsen/logrus"
)

// AvailabilityService owns the blocking predicate. Every place that needs to
// know whether a reservation keeps others out (booking, the public calendar,
// the conflict report) goes through here; the hold-window arithmetic is not
// repeated anywhere else.
type AvailabilityService struct {
	repo       *repository.ReservationRepository
	cache      *cache.AvailabilityCache
	holdWindow time.Duration
	log        *logrus.Logger
}

func NewAvailabilityService(repo *repository.ReservationRepository, availCache *cache.AvailabilityCache, holdWindow time.Duration, log *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{repo: repo, cache: availCache, holdWindow: holdWindow, log: log}
}

func (s *AvailabilityService) HoldWindow() time.Duration { return s.holdWindow }

// IsBlocking reports whether res currently keeps other bookings out.
// Confirmed reservations always block; an awaiting-payment reservation blocks
// only while its hold window is open, so stale unpaid holds free the slot
// lazily without waiting for the expiry sweep.
func IsBlocking(res db.Reservation, now time.Time, holdWindow time.Duration) bool {
	switch res.Status {
	case db.StatusConfirmed:
		return true
	case db.StatusAwaitingPayment:
		return now.Sub(res.CreatedAt) < holdWindow
	default:
		return false
	}
}

// Overlaps compares two half-open intervals [aStart, aEnd) and
// [bStart, bEnd): touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FreeAmong decides whether [start, end) is free given the candidate rows
// read for that window. Used inside the booking critical section with rows
// fetched under the hangar lock.
func (s *AvailabilityService) FreeAmong(existing []db.Reservation, start, end, now time.Time) bool {
	for _, res := range existing {
		if !IsBlocking(res, now, s.holdWindow) {
			continue
		}
		if Overlaps(start, end, res.CheckIn, res.CheckOut) {
			return false
		}
	}
	return true
}

// OccupiedRanges lists the blocking intervals on a hangar for calendar
// rendering. Responses may come from the advisory cache; booking decisions
// never read this path.
func (s *AvailabilityService) OccupiedRanges(ctx context.Context, hangarID int64, from, to time.Time) ([]entities.OccupiedRange, error) {
	if !to.After(from) {
		return nil, apperrors.Validation("'to' must be after 'from'", nil)
	}
	from, to = from.UTC(), to.UTC()

	if ranges, ok := s.cache.Get(ctx, hangarID, from, to); ok {
		return ranges, nil
	}

	reservations, err := s.repo.ListForWindow(ctx, hangarID, from, to)
	if err != nil {
		s.log.WithError(err).WithField("hangar_id", hangarID).Error("availability query failed")
		return nil, apperrors.Internal("checking availability", err)
	}

	now := time.Now().UTC()
	ranges := []entities.OccupiedRange{}
	for _, res := range reservations {
		if !IsBlocking(res, now, s.holdWindow) {
			continue
		}
		ranges = append(ranges, entities.OccupiedRange{
			Start:  res.CheckIn,
			End:    res.CheckOut,
			Status: res.Status,
		})
	}

	s.cache.Set(ctx, hangarID, from, to, ranges)
	return ranges, nil
}
