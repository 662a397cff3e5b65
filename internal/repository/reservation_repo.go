package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hangarshare/internal/db"

	"github.com/lib/pq"
)

// Advisory-lock namespace for per-hangar booking serialization. The second
// key is the hangar id, so bookings on different hangars never contend.
const bookingLockClass = 7311

const reservationColumns = `id, code, hangar_id, user_id, user_name, user_email, user_phone,
	check_in, check_out, subtotal, fee, total, payment_method, status,
	canceled_by, canceled_at, created_at, updated_at`

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(database *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: database}
}

// ListForWindow returns reservations on a hangar that could block the given
// window: confirmed or awaiting-payment rows whose [check_in, check_out)
// intersects [from, to). Whether an awaiting-payment row actually blocks is
// decided by the caller against the hold window.
func (r *ReservationRepository) ListForWindow(ctx context.Context, hangarID int64, from, to time.Time) ([]db.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM hangar_reservations
		WHERE hangar_id = $1
		  AND status IN ('awaiting_payment', 'confirmed')
		  AND check_in < $3
		  AND check_out > $2
		ORDER BY check_in`
	rows, err := r.DB.QueryContext(ctx, query, hangarID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying reservation window: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// CreateWithPayment runs the booking critical section in one transaction:
// a hangar-scoped advisory lock, a re-read of potentially blocking rows, the
// reservation insert, and the payment-record creation. check is called with
// the rows read under the lock and aborts the insert by returning an error;
// createPayment persists the provider artifact on the same transaction. Any
// failure rolls the whole thing back, so a reservation is never durably
// created without its payment record.
func (r *ReservationRepository) CreateWithPayment(
	ctx context.Context,
	res *db.Reservation,
	check func(existing []db.Reservation) error,
	createPayment func(ctx context.Context, tx *sql.Tx, reservationID int64) error,
) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting reservation transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, bookingLockClass, res.HangarID); err != nil {
		return fmt.Errorf("error acquiring hangar lock: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM hangar_reservations
		WHERE hangar_id = $1
		  AND status IN ('awaiting_payment', 'confirmed')
		  AND check_in < $3
		  AND check_out > $2
		ORDER BY check_in`, res.HangarID, res.CheckIn, res.CheckOut)
	if err != nil {
		return fmt.Errorf("error querying blocking reservations: %w", err)
	}
	existing, err := collectReservations(rows)
	rows.Close()
	if err != nil {
		return err
	}

	if err := check(existing); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO hangar_reservations
			(code, hangar_id, user_id, user_name, user_email, user_phone,
			 check_in, check_out, subtotal, fee, total, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		res.Code, res.HangarID, res.UserID, res.UserName, res.UserEmail, res.UserPhone,
		res.CheckIn, res.CheckOut, res.Subtotal, res.Fee, res.Total, res.PaymentMethod, res.Status,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting reservation: %w", err)
	}

	if err := createPayment(ctx, tx, res.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByCode(ctx context.Context, code string) (*db.Reservation, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM hangar_reservations
		WHERE code = $1`, code)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying reservation %s: %w", code, err)
	}
	return res, nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*db.Reservation, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM hangar_reservations
		WHERE id = $1`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying reservation %d: %w", id, err)
	}
	return res, nil
}

// UpdateStatus moves a reservation to newStatus only if it currently holds
// one of the allowed statuses. Returns false when the guard matched no row,
// which callers treat as losing a transition race, not as an error.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, allowed []string, newStatus string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE hangar_reservations
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`,
		newStatus, id, pq.Array(allowed))
	if err != nil {
		return false, fmt.Errorf("error updating reservation %d status: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n > 0, nil
}

// Cancel is the status-guarded cancellation write. Payment history stays.
func (r *ReservationRepository) Cancel(ctx context.Context, id int64, actor string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE hangar_reservations
		SET status = 'canceled', canceled_by = $2, canceled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('awaiting_payment', 'confirmed')`,
		id, actor)
	if err != nil {
		return false, fmt.Errorf("error canceling reservation %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n > 0, nil
}

// List is the operator listing with optional filters.
func (r *ReservationRepository) List(ctx context.Context, date, status string, hangarID int64) ([]db.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM hangar_reservations
		WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += " AND DATE(check_in) = $" + strconv.Itoa(idx)
		args = append(args, date)
		idx++
	}
	if status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	if hangarID != 0 {
		query += " AND hangar_id = $" + strconv.Itoa(idx)
		args = append(args, hangarID)
		idx++
	}
	query += " ORDER BY check_in DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]db.Reservation, error) {
	var reservations []db.Reservation
	for rows.Next() {
		var res db.Reservation
		err := rows.Scan(
			&res.ID, &res.Code, &res.HangarID, &res.UserID, &res.UserName, &res.UserEmail, &res.UserPhone,
			&res.CheckIn, &res.CheckOut, &res.Subtotal, &res.Fee, &res.Total, &res.PaymentMethod, &res.Status,
			&res.CanceledBy, &res.CanceledAt, &res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}
	return reservations, nil
}

func scanReservation(row *sql.Row) (*db.Reservation, error) {
	var res db.Reservation
	err := row.Scan(
		&res.ID, &res.Code, &res.HangarID, &res.UserID, &res.UserName, &res.UserEmail, &res.UserPhone,
		&res.CheckIn, &res.CheckOut, &res.Subtotal, &res.Fee, &res.Total, &res.PaymentMethod, &res.Status,
		&res.CanceledBy, &res.CanceledAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
