package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hangarshare/internal/db"

	"github.com/lib/pq"
)

const paymentColumns = `id, reservation_id, provider, provider_ref, amount, currency,
	status, expires_at, created_at, updated_at`

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(database *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: database}
}

// InsertTx writes a payment record on the caller's transaction, so it commits
// or rolls back together with its reservation.
func (r *PaymentRepository) InsertTx(ctx context.Context, tx *sql.Tx, p *db.PaymentRecord) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO payment_records
			(reservation_id, provider, provider_ref, amount, currency, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.ReservationID, p.Provider, p.ProviderRef, p.Amount, p.Currency, p.Status, p.ExpiresAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting payment record: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByProviderRef(ctx context.Context, provider, providerRef string) (*db.PaymentRecord, error) {
	var p db.PaymentRecord
	err := r.DB.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_records
		WHERE provider = $1 AND provider_ref = $2`, provider, providerRef).Scan(
		&p.ID, &p.ReservationID, &p.Provider, &p.ProviderRef, &p.Amount, &p.Currency,
		&p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s/%s not found: %w", provider, providerRef, err)
		}
		return nil, fmt.Errorf("error querying payment %s/%s: %w", provider, providerRef, err)
	}
	return &p, nil
}

// LatestByReservation returns the newest (active) payment record.
func (r *PaymentRepository) LatestByReservation(ctx context.Context, reservationID int64) (*db.PaymentRecord, error) {
	var p db.PaymentRecord
	err := r.DB.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_records
		WHERE reservation_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, reservationID).Scan(
		&p.ID, &p.ReservationID, &p.Provider, &p.ProviderRef, &p.Amount, &p.Currency,
		&p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no payment record for reservation %d: %w", reservationID, err)
		}
		return nil, fmt.Errorf("error querying payment for reservation %d: %w", reservationID, err)
	}
	return &p, nil
}

// UpdateStatus is status-guarded like the reservation transitions; replayed
// provider callbacks match zero rows and report false.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int64, allowed []string, newStatus string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE payment_records
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`,
		newStatus, id, pq.Array(allowed))
	if err != nil {
		return false, fmt.Errorf("error updating payment %d status: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n > 0, nil
}

// ListPendingPix returns unexpired pending instant-transfer records for the
// reconciliation poll.
func (r *PaymentRepository) ListPendingPix(ctx context.Context, limit int) ([]db.PaymentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_records
		WHERE provider = 'pix'
		  AND status = 'pending'
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing pending pix payments: %w", err)
	}
	defer rows.Close()

	var records []db.PaymentRecord
	for rows.Next() {
		var p db.PaymentRecord
		err := rows.Scan(
			&p.ID, &p.ReservationID, &p.Provider, &p.ProviderRef, &p.Amount, &p.Currency,
			&p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment record: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment records: %w", err)
	}
	return records, nil
}
