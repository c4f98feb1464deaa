package models

import "time"

// ProcessedWebhookEvent records a provider event id as handled. The primary
// key doubles as the idempotency key: inserting it with ON CONFLICT DO
// NOTHING inside the processing transaction makes redelivery a no-op.
type ProcessedWebhookEvent struct {
	EventID   string    `gorm:"primarykey" json:"event_id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at"`
}
