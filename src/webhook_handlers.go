package main

import (
	"io"
	"log"
	"net/http"
	"rbs/src/common"
	"rbs/src/config"
	"rbs/src/db"
	"rbs/src/types"
	"rbs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// paymentWebhookRoute ingests asynchronous events from the payment
// provider. Signature verification happens strictly before any database
// access; dedupe, classification and the reservation mutation share one
// transaction so a retried delivery can never apply twice.
func paymentWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhooks/payments", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		secret := config.WebhookSecret()
		if secret == "" {
			if config.IsProd() {
				log.Println("[webhook] No webhook secret configured in production. Rejecting event")
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			log.Println("[webhook] No webhook secret configured. Skipping signature verification")
		} else if !utils.VerifyWebhookSignature(payload, ctx.GetHeader("X-Webhook-Signature"), secret) {
			log.Println("[webhook] Error verifying event signature")
			ctx.Status(http.StatusBadRequest)
			return
		}
		eventID := gjson.GetBytes(payload, "id").String()
		eventType := gjson.GetBytes(payload, "type").String()
		if eventID == "" || eventType == "" {
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[PaymentEvent] %s %s\n", eventType, eventID)
		kind := common.ClassifyEventType(eventType)
		db := db.GetDb()
		err = db.Transaction(func(tx *gorm.DB) error {
			fresh, err := common.MarkEventProcessedTx(tx, eventID, eventType)
			if err != nil {
				return err
			}
			if !fresh {
				log.Printf("[%s] Event already processed. Skipping\n", eventID)
				return nil
			}
			switch kind {
			case types.WEBHOOK_PAYMENT_COMPLETED:
				return handlePaymentCompleted(tx, eventID, payload)
			case types.WEBHOOK_REFUND_COMPLETED:
				return handleRefundCompleted(tx, eventID, payload)
			default:
				log.Printf("[%s] Unhandled event type %s\n", eventID, eventType)
			}
			return nil
		})
		if err != nil {
			log.Printf("[%s] Error processing event: %s\n", eventID, err.Error())
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	})
	return apiv1
}

func handlePaymentCompleted(tx *gorm.DB, eventID string, payload []byte) error {
	status := gjson.GetBytes(payload, "data.payment.status").String()
	if !common.IsCompletedStatus(status) {
		log.Printf("[%s] Payment status is %q. Skipping\n", eventID, status)
		return nil
	}
	paymentID := gjson.GetBytes(payload, "data.payment.id").String()
	if paymentID == "" {
		log.Printf("[%s] Payment event carries no payment id. Skipping\n", eventID)
		return nil
	}
	explicit := gjson.GetBytes(payload, "data.payment.metadata.reservation_id").String()
	references := []string{
		gjson.GetBytes(payload, "data.payment.reference").String(),
		gjson.GetBytes(payload, "data.payment.order").String(),
		gjson.GetBytes(payload, "data.payment.note").String(),
	}
	reservationID, ok := utils.ExtractReservationID(explicit, references...)
	if !ok {
		var err error
		reservationID, ok, err = common.FindReservationIDByPaymentID(tx, paymentID)
		if err != nil {
			return err
		}
	}
	if !ok {
		log.Printf("[%s] No reservation resolves for payment %s. Skipping\n", eventID, paymentID)
		return nil
	}
	if _, err := common.ConfirmReservationTx(tx, common.ConfirmParams{
		PaymentID:     paymentID,
		ReservationID: reservationID,
	}); err != nil {
		if apiErr, ok := common.AsAPIError(err); ok {
			// Business-logic skip: the provider must not retry these. Any
			// terminal marker the engine wrote still commits.
			log.Printf("[%s] Reservation %d not confirmable (%s). Skipping\n", eventID, reservationID, apiErr.Code)
			return nil
		}
		return err
	}
	log.Printf("[%s] Reservation %d confirmed by payment %s\n", eventID, reservationID, paymentID)
	return nil
}

func handleRefundCompleted(tx *gorm.DB, eventID string, payload []byte) error {
	status := gjson.GetBytes(payload, "data.refund.status").String()
	if !common.IsCompletedStatus(status) {
		log.Printf("[%s] Refund status is %q. Skipping\n", eventID, status)
		return nil
	}
	paymentID := gjson.GetBytes(payload, "data.refund.payment_id").String()
	if paymentID == "" {
		log.Printf("[%s] Refund event carries no payment id. Skipping\n", eventID)
		return nil
	}
	res, changed, err := common.CancelByPaymentIDTx(tx, paymentID)
	if err != nil {
		return err
	}
	if res == nil {
		log.Printf("[%s] No reservation stored payment %s. Skipping\n", eventID, paymentID)
		return nil
	}
	if changed {
		log.Printf("[%s] Reservation %d cancelled by refund of %s\n", eventID, res.ID, paymentID)
	} else {
		log.Printf("[%s] Reservation %d already in status %s. Skipping\n", eventID, res.ID, res.Status)
	}
	return nil
}
