package mailer

import (
	"log"
	"rbs/src/lib"
)

// NewMailerMessage dispatches a mail message without blocking the caller.
// Reservation notifications are fire-and-forget: a delivery failure is
// logged, never surfaced to the booking flow.
func NewMailerMessage(input *lib.SendMailInput) error {
	go func() {
		if err := lib.SendMail(input); err != nil {
			log.Printf("[mailer] Could not send message to %v: %s\n", input.To, err.Error())
		}
	}()
	return nil
}
