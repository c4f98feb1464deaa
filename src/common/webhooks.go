package common

import (
	"errors"
	"rbs/src/models"
	"rbs/src/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var paymentCompletedTypes = map[string]bool{
	"payment.completed": true,
	"payment.paid":      true,
	"payment.succeeded": true,
}

var refundCompletedTypes = map[string]bool{
	"refund.completed": true,
	"refund.succeeded": true,
	"payment.refunded": true,
}

// ClassifyEventType buckets a provider event type string into the kinds the
// processor acts on. Everything unrecognized is acknowledged and skipped.
func ClassifyEventType(eventType string) types.WebhookEventKind {
	if paymentCompletedTypes[eventType] {
		return types.WEBHOOK_PAYMENT_COMPLETED
	}
	if refundCompletedTypes[eventType] {
		return types.WEBHOOK_REFUND_COMPLETED
	}
	return types.WEBHOOK_OTHER
}

// IsCompletedStatus reports whether an embedded payment or refund status is
// "completed"-equivalent.
func IsCompletedStatus(status string) bool {
	switch status {
	case "completed", "paid", "succeeded":
		return true
	}
	return false
}

// MarkEventProcessedTx records a provider event id inside the caller's
// transaction. Returns false when the id was already recorded, which makes
// redelivery a committed no-op.
func MarkEventProcessedTx(tx *gorm.DB, eventID, eventType string) (bool, error) {
	evt := models.ProcessedWebhookEvent{EventID: eventID, EventType: eventType}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&evt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindReservationIDByPaymentID is the final correlation fallback: a
// reservation that already stored the event's payment id.
func FindReservationIDByPaymentID(tx *gorm.DB, paymentID string) (uint, bool, error) {
	var res models.Reservation
	err := tx.
		Model(&models.Reservation{}).
		Select("id").
		Where("payment_id = ?", paymentID).
		First(&res).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return res.ID, true, nil
}
