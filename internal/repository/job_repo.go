package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// JobRepository holds the housekeeping sweep queries. Both timeouts in the
// system (the hold window and the instant-transfer expiry) are evaluated
// lazily here and in the availability predicate; there is no timer service.
type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// ExpireStalePending moves awaiting-payment reservations past the hold
// window to expired, unless their payment record shows recent activity or
// already succeeded. Records already expired do not count as activity, so
// ExpireOverduePayments bumping their updated_at in the same sweep cannot
// postpone the reservation. Idempotent and safe to run concurrently with the
// confirmation path: both sides are status-guarded, whichever commits first
// wins and the loser touches zero rows.
func (r *JobRepository) ExpireStalePending(ctx context.Context, holdWindow, grace time.Duration) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE hangar_reservations res
		SET status = 'expired', updated_at = NOW()
		WHERE res.status = 'awaiting_payment'
		  AND res.created_at < NOW() - $1::interval
		  AND NOT EXISTS (
			SELECT 1 FROM payment_records p
			WHERE p.reservation_id = res.id
			  AND (p.status = 'succeeded'
			       OR (p.status <> 'expired' AND p.updated_at > NOW() - $2::interval))
		  )`,
		pgInterval(holdWindow), pgInterval(grace))
	if err != nil {
		return 0, fmt.Errorf("error expiring stale reservations: %w", err)
	}
	return result.RowsAffected()
}

// CompleteFinished moves confirmed reservations whose check-out has passed
// to completed.
func (r *JobRepository) CompleteFinished(ctx context.Context) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE hangar_reservations
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed' AND check_out <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("error completing finished reservations: %w", err)
	}
	return result.RowsAffected()
}

// ExpireOverduePayments marks pending instant-transfer records past their
// expiry. The owning reservation is handled by ExpireStalePending, keeping a
// single expiry code path for both.
func (r *JobRepository) ExpireOverduePayments(ctx context.Context) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE payment_records
		SET status = 'expired', updated_at = NOW()
		WHERE provider = 'pix' AND status = 'pending' AND expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("error expiring overdue payments: %w", err)
	}
	return result.RowsAffected()
}

func pgInterval(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
