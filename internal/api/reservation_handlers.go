package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"hangarshare/internal/auth"
	"hangarshare/internal/entities"
	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/service"
)

type ReservationHandler struct {
	reservations *service.ReservationService
	log          *logrus.Logger
}

func NewReservationHandler(reservations *service.ReservationService, log *logrus.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, log: log}
}

// Quote prices a stay without committing anything.
func (h *ReservationHandler) Quote(w http.ResponseWriter, r *http.Request) {
	hangarID, err := strconv.ParseInt(r.URL.Query().Get("hangar_id"), 10, 64)
	if err != nil {
		writeError(w, h.log, apperrors.Validation("invalid hangar_id", err))
		return
	}
	checkIn, err := parseTimeParam(r, "check_in", time.Time{})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	checkOut, err := parseTimeParam(r, "check_out", time.Time{})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	pricing, err := h.reservations.Quote(r.Context(), hangarID, checkIn, checkOut)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pricing)
}

func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, h.log, apperrors.Unauthorized("authentication required", nil))
		return
	}

	var req entities.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, apperrors.Validation("invalid request body", err))
		return
	}
	req.UserID = identity.UserID
	req.UserName = identity.Name
	req.UserEmail = identity.Email

	resp, err := h.reservations.CreateReservation(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, h.log, apperrors.Unauthorized("authentication required", nil))
		return
	}

	resp, err := h.reservations.GetForUser(r.Context(), mux.Vars(r)["code"], identity.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, h.log, apperrors.Unauthorized("authentication required", nil))
		return
	}

	err := h.reservations.Cancel(r.Context(), mux.Vars(r)["code"], "user", identity.UserID, false)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}
