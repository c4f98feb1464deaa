package models

import (
	"rbs/src/types"
	"time"
)

type Reservation struct {
	ID              uint                    `gorm:"primarykey" json:"id"`
	RestaurantID    uint                    `json:"restaurant_id"`
	TableID         *uint                   `json:"table_id,omitempty"`
	UserID          *uint                   `json:"user_id,omitempty"`
	CustomerName    string                  `json:"customer_name"`
	CustomerPhone   string                  `json:"customer_phone"`
	CustomerEmail   string                  `json:"customer_email,omitempty"`
	PartySize       int                     `json:"party_size"`
	ReservationDate string                  `json:"reservation_date"`
	ReservationTime string                  `json:"reservation_time"`
	Status          types.ReservationStatus `gorm:"default:'tentative'" json:"status"`
	PaymentID       *string                 `gorm:"uniqueIndex" json:"payment_id,omitempty"`
	SpecialRequests *string                 `json:"special_requests,omitempty"`
	HasPreOrder     bool                    `json:"has_pre_order"`
	ConfirmedAt     *time.Time              `json:"confirmed_at,omitempty"`
	ExpiresAt       *time.Time              `json:"expires_at,omitempty"`

	Restaurant *Restaurant `gorm:"foreignKey:restaurant_id" json:"restaurant,omitempty"`
	Table      *Table      `gorm:"foreignKey:table_id" json:"table,omitempty"`
	User       *User       `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}

// StartsAt resolves the reservation's date and time-of-day pair into a
// single timestamp in the server's local zone.
func (r *Reservation) StartsAt() (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.ReservationDate+" "+r.ReservationTime, time.Local)
}
