package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/service"
)

type OperatorHandler struct {
	authService  service.OperatorAuthService
	reservations *service.ReservationService
	conflicts    *service.ConflictService
	log          *logrus.Logger
}

func NewOperatorHandler(
	authService service.OperatorAuthService,
	reservations *service.ReservationService,
	conflicts *service.ConflictService,
	log *logrus.Logger,
) *OperatorHandler {
	return &OperatorHandler{
		authService:  authService,
		reservations: reservations,
		conflicts:    conflicts,
		log:          log,
	}
}

func (h *OperatorHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, apperrors.Validation("invalid request body", err))
		return
	}

	token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ListReservations filters by optional date (YYYY-MM-DD), status and hangar_id.
func (h *OperatorHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var hangarID int64
	if raw := q.Get("hangar_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, apperrors.Validation("invalid hangar_id", err))
			return
		}
		hangarID = id
	}

	list, err := h.reservations.ListForOperator(r.Context(), q.Get("date"), q.Get("status"), hangarID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OperatorHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	err := h.reservations.Cancel(r.Context(), mux.Vars(r)["code"], "operator", 0, true)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// ConflictReport scans the window for overlapping blocking reservations.
// The window defaults to the next 90 days.
func (h *OperatorHandler) ConflictReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from, err := parseTimeParam(r, "from", now)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	to, err := parseTimeParam(r, "to", now.Add(90*24*time.Hour))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !from.Before(to) {
		writeError(w, h.log, apperrors.Validation("'to' must be after 'from'", nil))
		return
	}

	report, err := h.conflicts.Report(r.Context(), from, to)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
