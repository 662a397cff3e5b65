package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"hangarshare/internal/db"
	"hangarshare/internal/entities"
	"hangarshare/internal/metrics"
	"hangarshare/internal/repository"
)

// ConflictService scans stored reservations for overlapping blocking pairs.
// The booking transaction makes such pairs impossible to create, so a
// non-empty report means data was changed outside the booking path.
type ConflictService struct {
	repo       *repository.ConflictRepository
	holdWindow time.Duration
	log        *logrus.Logger
}

func NewConflictService(repo *repository.ConflictRepository, holdWindow time.Duration, log *logrus.Logger) *ConflictService {
	return &ConflictService{repo: repo, holdWindow: holdWindow, log: log}
}

func (s *ConflictService) Report(ctx context.Context, from, to time.Time) (*entities.ConflictReport, error) {
	candidates, err := s.repo.ListCandidates(ctx, from, to)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &entities.ConflictReport{From: from, To: to, Hangars: []entities.HangarConflicts{}}

	byHangar := map[int64][]db.Reservation{}
	order := []int64{}
	for _, res := range candidates {
		if !IsBlocking(res, now, s.holdWindow) {
			continue
		}
		if _, seen := byHangar[res.HangarID]; !seen {
			order = append(order, res.HangarID)
		}
		byHangar[res.HangarID] = append(byHangar[res.HangarID], res)
	}

	total := 0
	for _, hangarID := range order {
		rows := byHangar[hangarID]
		pairs := overlappingPairs(rows)
		if len(pairs) == 0 {
			continue
		}
		total += len(pairs)
		report.Hangars = append(report.Hangars, entities.HangarConflicts{
			HangarID:  hangarID,
			Conflicts: pairs,
		})
	}

	if total > 0 {
		metrics.IncIntegrityViolations(total)
		s.log.WithFields(logrus.Fields{
			"pairs": total,
			"from":  from,
			"to":    to,
		}).Error("overlapping blocking reservations detected")
	}
	return report, nil
}

// overlappingPairs expects rows sorted by check_in, which lets the inner
// scan stop at the first row starting after the outer row ends.
func overlappingPairs(rows []db.Reservation) []entities.ConflictPair {
	var pairs []entities.ConflictPair
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if !rows[j].CheckIn.Before(rows[i].CheckOut) {
				break
			}
			pairs = append(pairs, entities.ConflictPair{
				FirstCode:   rows[i].Code,
				SecondCode:  rows[j].Code,
				OverlapFrom: laterOf(rows[i].CheckIn, rows[j].CheckIn),
				OverlapTo:   earlierOf(rows[i].CheckOut, rows[j].CheckOut),
			})
		}
	}
	return pairs
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
