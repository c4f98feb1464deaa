package models

import "rbs/src/types"

// ReservationSetting holds the reservation-duration buffer and the
// cancellation window for one restaurant, or the global default when
// RestaurantID is null. Resolution picks the most recently updated row.
type ReservationSetting struct {
	ID                      uint  `gorm:"primarykey" json:"id"`
	RestaurantID            *uint `gorm:"index" json:"restaurant_id,omitempty"`
	DurationMinutes         int   `json:"duration_minutes"`
	CancellationWindowHours int   `json:"cancellation_window_hours"`

	types.Timestamps
}
