package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"hangarshare/internal/entities"
	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/service"
)

type AvailabilityHandler struct {
	availability *service.AvailabilityService
	log          *logrus.Logger
}

func NewAvailabilityHandler(availability *service.AvailabilityService, log *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, log: log}
}

// GetAvailability returns the occupied ranges of a hangar. The window
// defaults to the next 30 days.
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	hangarID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, h.log, apperrors.Validation("invalid hangar id", err))
		return
	}

	now := time.Now().UTC()
	from, err := parseTimeParam(r, "from", now)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	to, err := parseTimeParam(r, "to", now.Add(30*24*time.Hour))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	ranges, err := h.availability.OccupiedRanges(r.Context(), hangarID, from, to)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, entities.AvailabilityResponse{
		HangarID:       hangarID,
		From:           from,
		To:             to,
		OccupiedRanges: ranges,
	})
}

func parseTimeParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("invalid '"+name+"' timestamp, expected RFC3339", err)
	}
	return t.UTC(), nil
}
