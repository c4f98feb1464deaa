package models

import "rbs/src/types"

type Table struct {
	ID           uint              `gorm:"primarykey" json:"id"`
	RestaurantID uint              `json:"restaurant_id"`
	Number       string            `json:"number"`
	Capacity     int               `json:"capacity"`
	Status       types.TableStatus `gorm:"default:'available'" json:"status"`

	Restaurant   *Restaurant   `gorm:"foreignKey:restaurant_id" json:"restaurant,omitempty"`
	Reservations []Reservation `json:"reservations,omitempty"`

	types.Timestamps
}
