package common

import (
	"rbs/src/config"
	"rbs/src/models"
	"rbs/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMinutesOfDay(t *testing.T) {
	m, err := MinutesOfDay("00:00")
	assert.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = MinutesOfDay("18:45")
	assert.NoError(t, err)
	assert.Equal(t, 18*60+45, m)

	_, err = MinutesOfDay("6pm")
	assert.Error(t, err)
}

func TestResolveReservationSettings(t *testing.T) {
	d := newTestDB(t)
	restaurantID := uint(1)

	resolved := ResolveReservationSettings(d, &restaurantID)
	assert.Equal(t, config.DEFAULT_DURATION_MINUTES, resolved.DurationMinutes)
	assert.Equal(t, config.DEFAULT_CANCELLATION_WINDOW_HOURS, resolved.CancellationWindowHours)

	global := models.ReservationSetting{DurationMinutes: 60, CancellationWindowHours: 6}
	assert.NoError(t, d.Create(&global).Error)

	resolved = ResolveReservationSettings(d, &restaurantID)
	assert.Equal(t, 60, resolved.DurationMinutes)
	assert.Equal(t, 6, resolved.CancellationWindowHours)

	own := models.ReservationSetting{RestaurantID: &restaurantID, DurationMinutes: 120, CancellationWindowHours: 24}
	assert.NoError(t, d.Create(&own).Error)

	resolved = ResolveReservationSettings(d, &restaurantID)
	assert.Equal(t, 120, resolved.DurationMinutes)
	assert.Equal(t, 24, resolved.CancellationWindowHours)

	// Restaurants without their own row keep the global values.
	other := uint(2)
	resolved = ResolveReservationSettings(d, &other)
	assert.Equal(t, 60, resolved.DurationMinutes)
}

func TestFindConflictingReservations(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	day := time.Now().Add(72 * time.Hour)
	at := func(hour, min int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.Local)
	}
	date := day.Format(config.DATE_FORMAT)

	holder := seedReservation(t, d, table, types.RESERVATION_CONFIRMED, at(18, 0), nil)
	seedReservation(t, d, table, types.RESERVATION_CANCELLED, at(18, 15), nil)

	conflicts, err := FindConflictingReservations(d, table.ID, date, "18:45", 90, 0, OccupyingStatuses)
	assert.NoError(t, err)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, holder.ID, conflicts[0].ID)

	// Exactly at the buffer boundary is free.
	conflicts, err = FindConflictingReservations(d, table.ID, date, "19:30", 90, 0, OccupyingStatuses)
	assert.NoError(t, err)
	assert.Len(t, conflicts, 0)

	conflicts, err = FindConflictingReservations(d, table.ID, date, "18:45", 90, holder.ID, OccupyingStatuses)
	assert.NoError(t, err)
	assert.Len(t, conflicts, 0)

	_, err = FindConflictingReservations(d, table.ID, date, "bogus", 90, 0, OccupyingStatuses)
	assert.Error(t, err)
}

func TestFindConflictingReservationsFailsClosed(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	day := time.Now().Add(72 * time.Hour)
	date := day.Format(config.DATE_FORMAT)

	res := models.Reservation{
		RestaurantID:    table.RestaurantID,
		TableID:         &table.ID,
		CustomerName:    "Someone",
		CustomerPhone:   "555-0100",
		PartySize:       2,
		ReservationDate: date,
		ReservationTime: "garbled",
		Status:          types.RESERVATION_CONFIRMED,
	}
	assert.NoError(t, d.Create(&res).Error)

	conflicts, err := FindConflictingReservations(d, table.ID, date, "18:00", 90, 0, OccupyingStatuses)
	assert.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestClassifyEventType(t *testing.T) {
	assert.Equal(t, types.WEBHOOK_PAYMENT_COMPLETED, ClassifyEventType("payment.completed"))
	assert.Equal(t, types.WEBHOOK_PAYMENT_COMPLETED, ClassifyEventType("payment.succeeded"))
	assert.Equal(t, types.WEBHOOK_PAYMENT_COMPLETED, ClassifyEventType("payment.paid"))
	assert.Equal(t, types.WEBHOOK_REFUND_COMPLETED, ClassifyEventType("refund.completed"))
	assert.Equal(t, types.WEBHOOK_REFUND_COMPLETED, ClassifyEventType("payment.refunded"))
	assert.Equal(t, types.WEBHOOK_OTHER, ClassifyEventType("payment.created"))
	assert.Equal(t, types.WEBHOOK_OTHER, ClassifyEventType("customer.updated"))
}

func TestIsCompletedStatus(t *testing.T) {
	assert.True(t, IsCompletedStatus("completed"))
	assert.True(t, IsCompletedStatus("succeeded"))
	assert.True(t, IsCompletedStatus("paid"))
	assert.False(t, IsCompletedStatus("pending"))
	assert.False(t, IsCompletedStatus(""))
}
