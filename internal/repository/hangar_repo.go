package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hangarshare/internal/db"
)

// HangarRepository reads hangar listings. Listings are owned by the listing
// service; this core never writes them.
type HangarRepository struct {
	DB *sql.DB
}

func NewHangarRepository(database *sql.DB) *HangarRepository {
	return &HangarRepository{DB: database}
}

func (r *HangarRepository) GetByID(ctx context.Context, id int64) (*db.Hangar, error) {
	var h db.Hangar
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, owner_id, hangar_number, icao_code,
		       hourly_rate, daily_rate, monthly_rate, is_available
		FROM hangar_listings
		WHERE id = $1`, id).Scan(
		&h.ID, &h.OwnerID, &h.HangarNumber, &h.ICAOCode,
		&h.HourlyRate, &h.DailyRate, &h.MonthlyRate, &h.IsAvailable,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("hangar %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying hangar %d: %w", id, err)
	}
	return &h, nil
}
