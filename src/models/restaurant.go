package models

import "rbs/src/types"

type Restaurant struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `json:"name"`
	Slug     string `gorm:"uniqueIndex" json:"slug"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Timezone string `gorm:"default:'Local'" json:"timezone,omitempty"`

	Tables []Table `json:"tables,omitempty"`

	types.Timestamps
}
