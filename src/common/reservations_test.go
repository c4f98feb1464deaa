package common

import (
	"fmt"
	"rbs/src/config"
	"rbs/src/db"
	"rbs/src/models"
	"rbs/src/types"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("error opening test database: %s", err.Error())
	}
	inner, err := d.DB()
	if err != nil {
		t.Fatalf("error accessing inner db instance: %s", err.Error())
	}
	inner.SetMaxOpenConns(1)
	err = d.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Table{},
		&models.Reservation{},
		&models.ReservationSetting{},
		&models.ProcessedWebhookEvent{},
	)
	if err != nil {
		t.Fatalf("error migration: %s", err.Error())
	}
	db.NewDB(d)
	return d
}

func seedTable(t *testing.T, d *gorm.DB) *models.Table {
	restaurant := models.Restaurant{Name: "Bistro", Slug: "bistro"}
	if err := d.Create(&restaurant).Error; err != nil {
		t.Fatalf("error seeding restaurant: %s", err.Error())
	}
	table := models.Table{RestaurantID: restaurant.ID, Number: "T1", Capacity: 4}
	if err := d.Create(&table).Error; err != nil {
		t.Fatalf("error seeding table: %s", err.Error())
	}
	return &table
}

func seedReservation(t *testing.T, d *gorm.DB, table *models.Table, status types.ReservationStatus, startsAt time.Time, expiresAt *time.Time) *models.Reservation {
	res := models.Reservation{
		RestaurantID:    table.RestaurantID,
		TableID:         &table.ID,
		CustomerName:    "Someone",
		CustomerPhone:   "555-0100",
		PartySize:       2,
		ReservationDate: startsAt.Format(config.DATE_FORMAT),
		ReservationTime: startsAt.Format(config.TIME_FORMAT),
		Status:          status,
		ExpiresAt:       expiresAt,
	}
	if err := d.Create(&res).Error; err != nil {
		t.Fatalf("error seeding reservation: %s", err.Error())
	}
	return &res
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to types.ReservationStatus
		want     bool
	}{
		{types.RESERVATION_TENTATIVE, types.RESERVATION_CONFIRMED, true},
		{types.RESERVATION_TENTATIVE, types.RESERVATION_EXPIRED, true},
		{types.RESERVATION_TENTATIVE, types.RESERVATION_CANCELLED, true},
		{types.RESERVATION_TENTATIVE, types.RESERVATION_SEATED, false},
		{types.RESERVATION_CONFIRMED, types.RESERVATION_SEATED, true},
		{types.RESERVATION_CONFIRMED, types.RESERVATION_NO_SHOW, true},
		{types.RESERVATION_CONFIRMED, types.RESERVATION_COMPLETED, false},
		{types.RESERVATION_SEATED, types.RESERVATION_COMPLETED, true},
		{types.RESERVATION_SEATED, types.RESERVATION_NO_SHOW, true},
		{types.RESERVATION_SEATED, types.RESERVATION_CANCELLED, false},
		{types.RESERVATION_COMPLETED, types.RESERVATION_SEATED, false},
		{types.RESERVATION_CANCELLED, types.RESERVATION_CONFIRMED, false},
		{types.RESERVATION_EXPIRED, types.RESERVATION_CONFIRMED, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestConfirmReservationTx(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	holdUntil := time.Now().Add(30 * time.Minute)
	res := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(48*time.Hour), &holdUntil)

	got, err := ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_1", ReservationID: res.ID})
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CONFIRMED, got.Status)
	assert.Nil(t, got.ExpiresAt)
	assert.NotNil(t, got.ConfirmedAt)

	var table2 models.Table
	d.First(&table2, table.ID)
	assert.Equal(t, types.TABLE_RESERVED, table2.Status)

	// Retry with the same payment is a no-op, not an error.
	again, err := ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_1", ReservationID: res.ID})
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CONFIRMED, again.Status)

	_, err = ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_2", ReservationID: 999999})
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestConfirmExpiredHold(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	lapsed := time.Now().Add(-time.Minute)
	res := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(48*time.Hour), &lapsed)

	_, err := ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_1", ReservationID: res.ID})
	assert.ErrorIs(t, err, ErrReservationExpired)

	var got models.Reservation
	d.First(&got, res.ID)
	assert.Equal(t, types.RESERVATION_EXPIRED, got.Status)
}

func TestConfirmConflictMarksExpired(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	day := time.Now().Add(72 * time.Hour)
	at := func(hour, min int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.Local)
	}
	seedReservation(t, d, table, types.RESERVATION_CONFIRMED, at(18, 0), nil)
	holdUntil := time.Now().Add(30 * time.Minute)
	loser := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, at(18, 45), &holdUntil)

	_, err := ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_1", ReservationID: loser.ID})
	assert.ErrorIs(t, err, ErrSlotConflict)

	var got models.Reservation
	d.First(&got, loser.ID)
	assert.Equal(t, types.RESERVATION_EXPIRED, got.Status)

	holdUntil2 := time.Now().Add(30 * time.Minute)
	winner := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, at(20, 0), &holdUntil2)
	got2, err := ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_2", ReservationID: winner.ID})
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CONFIRMED, got2.Status)
}

func TestConfirmOwnership(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	owner := uint(7)
	holdUntil := time.Now().Add(30 * time.Minute)
	res := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(48*time.Hour), &holdUntil)
	d.Model(&models.Reservation{}).Where("id = ?", res.ID).Update("user_id", owner)

	stranger := uint(8)
	_, err := ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_1", ReservationID: res.ID, RequestingUserID: &stranger})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = ConfirmReservationTx(d, ConfirmParams{PaymentID: "pay_1", ReservationID: res.ID, RequestingUserID: &owner})
	assert.NoError(t, err)
}

func TestRedeemIntentIdempotent(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	day := time.Now().Add(72 * time.Hour)
	claims := &types.IntentClaims{
		RestaurantID:    table.RestaurantID,
		TableID:         &table.ID,
		CustomerName:    "Someone",
		CustomerPhone:   "555-0100",
		PartySize:       2,
		ReservationDate: day.Format(config.DATE_FORMAT),
		ReservationTime: "19:00",
	}

	first, err := RedeemIntentTx(d, claims, "pay_redeem_1", nil)
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CONFIRMED, first.Status)

	// The retry must return the row the first call created instead of
	// colliding with it.
	again, err := RedeemIntentTx(d, claims, "pay_redeem_1", nil)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	d.Model(&models.Reservation{}).Where("table_id = ?", table.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	// A different payment for the same slot is a real conflict.
	_, err = RedeemIntentTx(d, claims, "pay_redeem_2", nil)
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestRefundByPaymentCorrelation(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	res := seedReservation(t, d, table, types.RESERVATION_CONFIRMED, time.Now().Add(48*time.Hour), nil)
	d.Model(&models.Reservation{}).Where("id = ?", res.ID).Update("payment_id", "pay_held_1")

	// A guessed reservation id with the wrong payment key cancels nothing.
	_, err := RefundByPayment("pay_wrong_1", &res.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	var got models.Reservation
	d.First(&got, res.ID)
	assert.Equal(t, types.RESERVATION_CONFIRMED, got.Status)

	refunded, err := RefundByPayment("pay_held_1", &res.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CANCELLED, refunded.Status)
}

func TestConcurrentConfirmSingleTransition(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	holdUntil := time.Now().Add(30 * time.Minute)
	res := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(48*time.Hour), &holdUntil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ConfirmReservation(ConfirmParams{
				PaymentID:     fmt.Sprintf("pay_race_%d", i),
				ReservationID: res.ID,
			})
		}(i)
	}
	wg.Wait()

	// Both callers see success; exactly one payment id won the transition.
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	var got models.Reservation
	d.First(&got, res.ID)
	assert.Equal(t, types.RESERVATION_CONFIRMED, got.Status)
	assert.NotNil(t, got.PaymentID)
	assert.Contains(t, []string{"pay_race_0", "pay_race_1"}, *got.PaymentID)
	assert.NotNil(t, got.ConfirmedAt)
}

func TestCancelReservationWindow(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)

	soon := seedReservation(t, d, table, types.RESERVATION_CONFIRMED, time.Now().Add(2*time.Hour), nil)
	_, err := CancelReservation(soon.ID, nil)
	assert.ErrorIs(t, err, ErrRefundWindowPassed)

	later := seedReservation(t, d, table, types.RESERVATION_CONFIRMED, time.Now().Add(48*time.Hour), nil)
	got, err := CancelReservation(later.ID, nil)
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CANCELLED, got.Status)

	// Tentative holds cancel regardless of the window.
	holdUntil := time.Now().Add(30 * time.Minute)
	hold := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(time.Hour), &holdUntil)
	got, err = CancelReservation(hold.ID, nil)
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CANCELLED, got.Status)
}

func TestCancelByPaymentIDTx(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	res := seedReservation(t, d, table, types.RESERVATION_CONFIRMED, time.Now().Add(time.Hour), nil)
	d.Model(&models.Reservation{}).Where("id = ?", res.ID).Update("payment_id", "pay_rf_1")

	// The provider already refunded; the window does not apply.
	got, changed, err := CancelByPaymentIDTx(d, "pay_rf_1")
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RESERVATION_CANCELLED, got.Status)

	got, changed, err = CancelByPaymentIDTx(d, "pay_rf_1")
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, types.RESERVATION_CANCELLED, got.Status)

	missing, changed, err := CancelByPaymentIDTx(d, "pay_unknown")
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, missing)
}

func TestUpdateReservationStatusFlow(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	res := seedReservation(t, d, table, types.RESERVATION_CONFIRMED, time.Now().Add(time.Hour), nil)

	got, err := UpdateReservationStatus(res.ID, types.RESERVATION_SEATED)
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_SEATED, got.Status)

	var table2 models.Table
	d.First(&table2, table.ID)
	assert.Equal(t, types.TABLE_OCCUPIED, table2.Status)

	got, err = UpdateReservationStatus(res.ID, types.RESERVATION_COMPLETED)
	assert.NoError(t, err)
	assert.Equal(t, types.RESERVATION_COMPLETED, got.Status)

	d.First(&table2, table.ID)
	assert.Equal(t, types.TABLE_AVAILABLE, table2.Status)

	_, err = UpdateReservationStatus(res.ID, types.RESERVATION_SEATED)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExpireStaleTentative(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	lapsed := time.Now().Add(-time.Minute)
	stale := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(48*time.Hour), &lapsed)
	live := time.Now().Add(30 * time.Minute)
	fresh := seedReservation(t, d, table, types.RESERVATION_TENTATIVE, time.Now().Add(49*time.Hour), &live)

	ExpireStaleTentative()

	var got models.Reservation
	d.First(&got, stale.ID)
	assert.Equal(t, types.RESERVATION_EXPIRED, got.Status)
	got = models.Reservation{}
	d.First(&got, fresh.ID)
	assert.Equal(t, types.RESERVATION_TENTATIVE, got.Status)
}

func TestSyncTableStatusStaffOverride(t *testing.T) {
	d := newTestDB(t)
	table := seedTable(t, d)
	d.Model(&models.Table{}).Where("id = ?", table.ID).Update("status", types.TABLE_UNAVAILABLE)
	seedReservation(t, d, table, types.RESERVATION_CONFIRMED, time.Now().Add(time.Hour), nil)

	assert.NoError(t, SyncTableStatus(d, table.ID))

	var got models.Table
	d.First(&got, table.ID)
	assert.Equal(t, types.TABLE_UNAVAILABLE, got.Status)
}

func TestMarkEventProcessedTx(t *testing.T) {
	d := newTestDB(t)

	fresh, err := MarkEventProcessedTx(d, "evt_1", "payment.completed")
	assert.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = MarkEventProcessedTx(d, "evt_1", "payment.completed")
	assert.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = MarkEventProcessedTx(d, "evt_2", "refund.completed")
	assert.NoError(t, err)
	assert.True(t, fresh)
}
