package common

import (
	"fmt"
	"rbs/src/config"
	"rbs/src/models"
	"rbs/src/types"
	"time"

	"gorm.io/gorm"
)

// OccupyingStatuses is the set of statuses that hold a table slot for
// conflict purposes. The immediate-booking path additionally counts legacy
// pending holds; see OccupyingStatusesWithPending.
var OccupyingStatuses = []types.ReservationStatus{
	types.RESERVATION_CONFIRMED,
	types.RESERVATION_SEATED,
}

var OccupyingStatusesWithPending = []types.ReservationStatus{
	types.RESERVATION_CONFIRMED,
	types.RESERVATION_SEATED,
	types.RESERVATION_PENDING,
}

// ResolveReservationSettings returns the effective duration buffer and
// cancellation window for a restaurant: most-recently-updated restaurant row,
// else most-recently-updated global row, else hardcoded defaults. Pure read,
// never cached across requests.
func ResolveReservationSettings(tx *gorm.DB, restaurantID *uint) types.ReservationSettings {
	resolved := types.ReservationSettings{
		DurationMinutes:         config.DEFAULT_DURATION_MINUTES,
		CancellationWindowHours: config.DEFAULT_CANCELLATION_WINDOW_HOURS,
	}
	var setting models.ReservationSetting
	if restaurantID != nil {
		err := tx.
			Model(&models.ReservationSetting{}).
			Where("restaurant_id = ?", *restaurantID).
			Order("updated_at desc").
			First(&setting).
			Error
		if err == nil {
			resolved.DurationMinutes = setting.DurationMinutes
			resolved.CancellationWindowHours = setting.CancellationWindowHours
			return resolved
		}
	}
	err := tx.
		Model(&models.ReservationSetting{}).
		Where("restaurant_id IS NULL").
		Order("updated_at desc").
		First(&setting).
		Error
	if err == nil {
		resolved.DurationMinutes = setting.DurationMinutes
		resolved.CancellationWindowHours = setting.CancellationWindowHours
	}
	return resolved
}

// MinutesOfDay parses a "15:04" time-of-day value into minutes since
// midnight.
func MinutesOfDay(s string) (int, error) {
	t, err := time.Parse(config.TIME_FORMAT, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FindConflictingReservations returns every reservation on the table and
// date whose start time sits closer than bufferMinutes to timeOfDay, in
// either direction, restricted to the given statuses. excludeID skips the
// reservation being re-checked. A query failure propagates so the caller
// refuses to confirm rather than treating the slot as free.
func FindConflictingReservations(tx *gorm.DB, tableID uint, date, timeOfDay string, bufferMinutes int, excludeID uint, statuses []types.ReservationStatus) ([]models.Reservation, error) {
	want, err := MinutesOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}
	var candidates []models.Reservation
	q := tx.
		Model(&models.Reservation{}).
		Where("table_id = ?", tableID).
		Where("reservation_date = ?", date).
		Where("status IN ?", statuses)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}
	conflicts := make([]models.Reservation, 0, len(candidates))
	for _, r := range candidates {
		have, err := MinutesOfDay(r.ReservationTime)
		if err != nil {
			// A row with a malformed time still holds its slot; counting it
			// as a conflict keeps the check failing closed.
			conflicts = append(conflicts, r)
			continue
		}
		diff := want - have
		if diff < 0 {
			diff = -diff
		}
		if diff < bufferMinutes {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts, nil
}
