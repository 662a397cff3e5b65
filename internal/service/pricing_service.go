package service

import (
	"time"

	"hangarshare/internal/db"
	"hangarshare/internal/entities"
	apperrors "hangarshare/internal/errors"
)

const pricingDay = 24 * time.Hour

// PricingService turns a rate card and a date range into a quote. All
// arithmetic is on integer cents; the platform fee is a configured share of
// the subtotal in basis points, rounded half-up.
type PricingService struct {
	feeBps   int
	currency string
}

func NewPricingService(feeBps int, currency string) *PricingService {
	return &PricingService{feeBps: feeBps, currency: currency}
}

// Quote picks the billing unit from the stay length and the rate card:
// hourly for stays under a day when an hourly rate exists, monthly (plus
// remainder days) for stays of 30 days or more when a monthly rate exists,
// daily otherwise. Stays shorter than a month on a monthly-only listing fall
// back to the pro-rated daily rate (monthly / 30).
func (s *PricingService) Quote(h *db.Hangar, checkIn, checkOut time.Time) (*entities.PriceBreakdown, error) {
	if !checkOut.After(checkIn) {
		return nil, apperrors.Validation("check_out must be after check_in", nil)
	}
	dur := checkOut.Sub(checkIn)

	var items []entities.PriceItem
	switch {
	case dur < pricingDay && h.HourlyRate > 0:
		hours := ceilUnits(dur, time.Hour)
		items = append(items, entities.PriceItem{
			Unit: "hour", Units: hours, Rate: h.HourlyRate,
			Subtotal: h.HourlyRate * int64(hours),
		})

	case dur >= 30*pricingDay && h.MonthlyRate > 0:
		months := int(dur / (30 * pricingDay))
		items = append(items, entities.PriceItem{
			Unit: "month", Units: months, Rate: h.MonthlyRate,
			Subtotal: h.MonthlyRate * int64(months),
		})
		if rem := dur - time.Duration(months)*30*pricingDay; rem > 0 {
			days := ceilUnits(rem, pricingDay)
			rate := s.dailyRate(h)
			if rate <= 0 {
				return nil, apperrors.Validation("hangar has no usable rate for this stay", nil)
			}
			items = append(items, entities.PriceItem{
				Unit: "day", Units: days, Rate: rate,
				Subtotal: rate * int64(days),
			})
		}

	default:
		days := ceilUnits(dur, pricingDay)
		rate := s.dailyRate(h)
		if rate <= 0 {
			return nil, apperrors.Validation("hangar has no usable rate for this stay", nil)
		}
		items = append(items, entities.PriceItem{
			Unit: "day", Units: days, Rate: rate,
			Subtotal: rate * int64(days),
		})
	}

	var subtotal int64
	for _, item := range items {
		subtotal += item.Subtotal
	}
	fee := roundHalfUpBps(subtotal, s.feeBps)

	return &entities.PriceBreakdown{
		Items:    items,
		Subtotal: subtotal,
		Fee:      fee,
		Total:    subtotal + fee,
		Currency: s.currency,
	}, nil
}

func (s *PricingService) dailyRate(h *db.Hangar) int64 {
	if h.DailyRate > 0 {
		return h.DailyRate
	}
	if h.MonthlyRate > 0 {
		return h.MonthlyRate / 30
	}
	return 0
}

func ceilUnits(d, unit time.Duration) int {
	n := int(d / unit)
	if d%unit != 0 {
		n++
	}
	return n
}

// roundHalfUpBps applies a basis-point share with half-up rounding:
// exactly .5 of a cent rounds away from zero. Float arithmetic is never used
// for money.
func roundHalfUpBps(amount int64, bps int) int64 {
	return (amount*int64(bps) + 5000) / 10000
}
