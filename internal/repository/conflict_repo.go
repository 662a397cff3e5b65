package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hangarshare/internal/db"
)

// ConflictRepository feeds the operator conflict report. It only fetches
// candidate rows; the blocking predicate and the overlap scan run in the
// service so the temporal logic lives in exactly one place.
type ConflictRepository struct {
	DB *sql.DB
}

func NewConflictRepository(database *sql.DB) *ConflictRepository {
	return &ConflictRepository{DB: database}
}

// ListCandidates returns confirmed and awaiting-payment reservations across
// all hangars intersecting [from, to), ordered by hangar then check-in.
func (r *ConflictRepository) ListCandidates(ctx context.Context, from, to time.Time) ([]db.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM hangar_reservations
		WHERE status IN ('awaiting_payment', 'confirmed')
		  AND check_in < $2
		  AND check_out > $1
		ORDER BY hangar_id, check_in`, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying conflict candidates: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}
