package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Env string

const (
	Local      Env = "local"
	Test       Env = "test"
	Production Env = "production"
)

type ReservationStatus string

const (
	// RESERVATION_PENDING is the legacy immediate-booking hold status. It
	// occupies a slot for availability purposes but takes no further part
	// in the confirmation state machine.
	RESERVATION_PENDING   ReservationStatus = "pending"
	RESERVATION_TENTATIVE ReservationStatus = "tentative"
	RESERVATION_CONFIRMED ReservationStatus = "confirmed"
	RESERVATION_SEATED    ReservationStatus = "seated"
	RESERVATION_COMPLETED ReservationStatus = "completed"
	RESERVATION_CANCELLED ReservationStatus = "cancelled"
	RESERVATION_EXPIRED   ReservationStatus = "expired"
	RESERVATION_NO_SHOW   ReservationStatus = "no_show"
)

// Terminal reports whether the status ends a reservation's lifecycle.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case RESERVATION_COMPLETED, RESERVATION_CANCELLED, RESERVATION_EXPIRED, RESERVATION_NO_SHOW:
		return true
	}
	return false
}

type TableStatus string

const (
	TABLE_AVAILABLE   TableStatus = "available"
	TABLE_OCCUPIED    TableStatus = "occupied"
	TABLE_RESERVED    TableStatus = "reserved"
	TABLE_UNAVAILABLE TableStatus = "unavailable"
)

type WebhookEventKind string

const (
	WEBHOOK_PAYMENT_COMPLETED WebhookEventKind = "payment_completed"
	WEBHOOK_REFUND_COMPLETED  WebhookEventKind = "refund_completed"
	WEBHOOK_OTHER             WebhookEventKind = "other"
)

// ReservationSettings is the resolved per-restaurant policy pair used by the
// availability checker and the cancellation enforcer.
type ReservationSettings struct {
	DurationMinutes         int `json:"duration_minutes"`
	CancellationWindowHours int `json:"cancellation_window_hours"`
}

type CreateIntentRequestBody struct {
	RestaurantID    uint    `json:"restaurant_id" binding:"required"`
	TableID         *uint   `json:"table_id,omitempty"`
	CustomerName    string  `json:"customer_name" binding:"required"`
	CustomerPhone   string  `json:"customer_phone" binding:"required"`
	CustomerEmail   string  `json:"customer_email,omitempty" binding:"omitempty,email"`
	PartySize       int     `json:"party_size" binding:"required,min=1"`
	ReservationDate string  `json:"reservation_date" binding:"required,reservationdate"`
	ReservationTime string  `json:"reservation_time" binding:"required,reservationtime"`
	SpecialRequests *string `json:"special_requests,omitempty"`
	UserID          *uint   `json:"user_id,omitempty"`
}

type ConfirmReservationRequestBody struct {
	PaymentID     string  `json:"payment_id" binding:"required"`
	ReservationID *uint   `json:"reservation_id,omitempty"`
	IntentToken   *string `json:"intent_token,omitempty"`
}

type RefundRequestBody struct {
	PaymentID     string `json:"payment_id" binding:"required"`
	ReservationID *uint  `json:"reservation_id,omitempty"`
}

type CreateReservationRequestBody struct {
	RestaurantID    uint    `json:"restaurant_id" binding:"required"`
	TableID         *uint   `json:"table_id,omitempty"`
	CustomerName    string  `json:"customer_name" binding:"required"`
	CustomerPhone   string  `json:"customer_phone" binding:"required"`
	CustomerEmail   string  `json:"customer_email,omitempty" binding:"omitempty,email"`
	PartySize       int     `json:"party_size" binding:"required,min=1"`
	ReservationDate string  `json:"reservation_date" binding:"required,reservationdate"`
	ReservationTime string  `json:"reservation_time" binding:"required,reservationtime"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

type UpdateReservationStatusRequestBody struct {
	Status ReservationStatus `json:"status" binding:"required,oneof=seated completed no_show"`
}

type AvailabilityQuery struct {
	TableID uint   `form:"table_id" binding:"required"`
	Date    string `form:"date" binding:"required"`
	Time    string `form:"time" binding:"required"`
}

type CreateRestaurantRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type CreateTableRequestBody struct {
	RestaurantID uint   `json:"restaurant_id" binding:"required"`
	Number       string `json:"number" binding:"required"`
	Capacity     int    `json:"capacity" binding:"required,min=1"`
}

type CreateSettingRequestBody struct {
	RestaurantID            *uint `json:"restaurant_id,omitempty"`
	DurationMinutes         int   `json:"duration_minutes" binding:"required,min=1"`
	CancellationWindowHours int   `json:"cancellation_window_hours" binding:"required,min=0"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}
