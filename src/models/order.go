package models

import "rbs/src/types"

// Order is the boundary surface of the dine-in ordering subsystem. The
// reservation engine only ever reads the reservation linkage from it; order
// creation and its status workflow live elsewhere.
type Order struct {
	ID            uint    `gorm:"primarykey" json:"id"`
	RestaurantID  uint    `json:"restaurant_id"`
	TableID       *uint   `json:"table_id,omitempty"`
	ReservationID *uint   `gorm:"index" json:"reservation_id,omitempty"`
	Status        string  `gorm:"default:'pending'" json:"status"`
	Total         float64 `json:"total"`

	types.Timestamps
}
