package common

import (
	"rbs/src/models"
	"rbs/src/types"

	"gorm.io/gorm"
)

// SyncTableStatus recomputes a table's aggregate occupancy flag from the
// reservation rows referencing it. Runs inside the same transaction as the
// reservation mutation: any seated reservation holds the table occupied,
// else any confirmed one holds it reserved, else it reverts to available.
// A table staff marked unavailable stays unavailable.
func SyncTableStatus(tx *gorm.DB, tableID uint) error {
	var table models.Table
	if err := tx.
		Model(&models.Table{}).
		Where("id = ?", tableID).
		First(&table).
		Error; err != nil {
		return err
	}
	if table.Status == types.TABLE_UNAVAILABLE {
		return nil
	}
	var seated, confirmed int64
	if err := tx.
		Model(&models.Reservation{}).
		Where("table_id = ? AND status = ?", tableID, types.RESERVATION_SEATED).
		Count(&seated).
		Error; err != nil {
		return err
	}
	next := types.TABLE_AVAILABLE
	if seated > 0 {
		next = types.TABLE_OCCUPIED
	} else {
		if err := tx.
			Model(&models.Reservation{}).
			Where("table_id = ? AND status = ?", tableID, types.RESERVATION_CONFIRMED).
			Count(&confirmed).
			Error; err != nil {
			return err
		}
		if confirmed > 0 {
			next = types.TABLE_RESERVED
		}
	}
	if table.Status == next {
		return nil
	}
	return tx.
		Model(&models.Table{}).
		Where("id = ?", tableID).
		Update("status", next).
		Error
}
