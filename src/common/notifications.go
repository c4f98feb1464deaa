package common

import (
	"fmt"
	"rbs/src/config"
	"rbs/src/lib"
	"rbs/src/lib/mailer"
	"rbs/src/models"
)

// NotifyReservationConfirmed sends the confirmation email for a freshly
// created or confirmed reservation. Fire-and-forget: called after commit,
// never inside the transaction, and failures only log.
func NotifyReservationConfirmed(res *models.Reservation) {
	if res == nil || res.CustomerEmail == "" {
		return
	}
	from := config.SMTPFrom()
	if from == "" {
		return
	}
	body := fmt.Sprintf(`
	<p>Hi %s,</p>
	<p>Your reservation for %d on %s at %s is confirmed.</p>
	<p>Reservation reference: %d</p>
`, res.CustomerName, res.PartySize, res.ReservationDate, res.ReservationTime, res.ID)
	mailer.NewMailerMessage(&lib.SendMailInput{
		From:     from,
		FromName: "noreply",
		To:       []string{res.CustomerEmail},
		Subject:  "Reservation confirmed",
		Body:     body,
		Html:     true,
	})
}
