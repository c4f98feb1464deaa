package models

import "rbs/src/types"

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `gorm:"default:'customer'" json:"role,omitempty"`

	Reservations []Reservation `json:"reservations,omitempty"`

	types.Timestamps
}
