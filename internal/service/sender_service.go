package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"hangarshare/internal/config"
	"hangarshare/internal/db"
)

// Notifier delivers reservation lifecycle notices. Implementations must not
// block the caller; delivery failures are logged, never returned.
type Notifier interface {
	ReservationConfirmed(res *db.Reservation)
	ReservationCanceled(res *db.Reservation)
}

// NoopNotifier is used when no delivery channels are configured.
type NoopNotifier struct{}

func (NoopNotifier) ReservationConfirmed(*db.Reservation) {}
func (NoopNotifier) ReservationCanceled(*db.Reservation)  {}

type SenderService struct {
	cfg *config.Config
	log *logrus.Logger
}

func NewSenderService(cfg *config.Config, log *logrus.Logger) *SenderService {
	return &SenderService{cfg: cfg, log: log}
}

func (s *SenderService) ReservationConfirmed(res *db.Reservation) {
	go s.send(res, "confirmed")
}

func (s *SenderService) ReservationCanceled(res *db.Reservation) {
	go s.send(res, "canceled")
}

func (s *SenderService) send(res *db.Reservation, status string) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}

	checkIn := res.CheckIn.In(loc).Format("02 Jan 2006 15:04 MST")
	checkOut := res.CheckOut.In(loc).Format("02 Jan 2006 15:04 MST")

	subject := fmt.Sprintf("Your hangar reservation is %s - Code: %s", status, res.Code)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour hangar reservation is %s.\n\n"+
			"Reservation details:\n"+
			"Reservation code: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n\n"+
			"Thank you for choosing HangarShare.",
		res.UserName, status, res.Code, checkIn, checkOut,
	)
	html := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your hangar reservation is <strong>%s</strong>.</p>"+
			"<p>Reservation code: <strong>%s</strong><br>Check-in: %s<br>Check-out: %s</p>"+
			"<p>Thank you for choosing HangarShare.</p>",
		res.UserName, status, res.Code, checkIn, checkOut,
	)

	if err := s.sendEmail(res.UserEmail, res.UserName, subject, body, html); err != nil {
		s.log.WithError(err).WithField("code", res.Code).Error("sending reservation email")
	}

	if res.UserPhone != "" {
		sms := fmt.Sprintf("HangarShare: reservation %s is %s. Check-in %s.", res.Code, status, checkIn)
		if err := s.sendSMS(res.UserPhone, sms); err != nil {
			s.log.WithError(err).WithField("code", res.Code).Error("sending reservation SMS")
		}
	}
}
