package common

import (
	"errors"
	"log"
	"rbs/src/db"
	"rbs/src/models"
	"rbs/src/types"
	"time"

	"gorm.io/gorm"
)

// validTransitions is the reservation state machine. Confirmation via intent
// redemption inserts directly as confirmed and is not listed here; every
// mutation of an existing row must pass CanTransition.
var validTransitions = map[types.ReservationStatus][]types.ReservationStatus{
	types.RESERVATION_TENTATIVE: {
		types.RESERVATION_CONFIRMED,
		types.RESERVATION_EXPIRED,
		types.RESERVATION_CANCELLED,
	},
	types.RESERVATION_CONFIRMED: {
		types.RESERVATION_SEATED,
		types.RESERVATION_CANCELLED,
		types.RESERVATION_EXPIRED,
		types.RESERVATION_NO_SHOW,
	},
	types.RESERVATION_SEATED: {
		types.RESERVATION_COMPLETED,
		types.RESERVATION_NO_SHOW,
	},
	types.RESERVATION_PENDING: {
		types.RESERVATION_CONFIRMED,
		types.RESERVATION_CANCELLED,
		types.RESERVATION_EXPIRED,
	},
}

func CanTransition(from, to types.ReservationStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ConfirmParams struct {
	PaymentID        string
	ReservationID    uint
	RequestingUserID *uint
}

// ConfirmReservationTx runs confirmation by reservation id inside the
// caller's transaction, holding a row lock across the whole decision
// sequence. An *APIError return carries a business outcome and any writes it
// made (expiry markers) are meant to commit; any other error is an
// infrastructure failure the caller must roll back.
func ConfirmReservationTx(tx *gorm.DB, p ConfirmParams) (*models.Reservation, error) {
	var res models.Reservation
	if err := db.Locked(tx).
		Where("id = ?", p.ReservationID).
		First(&res).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if res.UserID != nil && p.RequestingUserID != nil && *res.UserID != *p.RequestingUserID {
		return nil, ErrForbidden
	}
	if res.Status == types.RESERVATION_CONFIRMED {
		// Idempotent no-op: a racing webhook or a client retry already won.
		return &res, nil
	}
	if res.Status != types.RESERVATION_TENTATIVE {
		return nil, ErrInvalidStatus
	}
	if res.ExpiresAt != nil && res.ExpiresAt.Before(time.Now()) {
		if err := tx.
			Model(&models.Reservation{}).
			Where("id = ?", res.ID).
			Update("status", types.RESERVATION_EXPIRED).
			Error; err != nil {
			return nil, err
		}
		res.Status = types.RESERVATION_EXPIRED
		return &res, ErrReservationExpired
	}
	if res.TableID != nil {
		settings := ResolveReservationSettings(tx, &res.RestaurantID)
		conflicts, err := FindConflictingReservations(tx, *res.TableID, res.ReservationDate, res.ReservationTime, settings.DurationMinutes, res.ID, OccupyingStatuses)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			if err := tx.
				Model(&models.Reservation{}).
				Where("id = ?", res.ID).
				Update("status", types.RESERVATION_EXPIRED).
				Error; err != nil {
				return nil, err
			}
			res.Status = types.RESERVATION_EXPIRED
			return &res, ErrSlotConflict
		}
	}
	now := time.Now()
	updates := map[string]any{
		"status":       types.RESERVATION_CONFIRMED,
		"payment_id":   p.PaymentID,
		"confirmed_at": now,
		"expires_at":   nil,
	}
	if err := tx.
		Model(&models.Reservation{}).
		Where("id = ?", res.ID).
		Updates(updates).
		Error; err != nil {
		return nil, err
	}
	res.Status = types.RESERVATION_CONFIRMED
	res.PaymentID = &p.PaymentID
	res.ConfirmedAt = &now
	res.ExpiresAt = nil
	if res.TableID != nil {
		if err := SyncTableStatus(tx, *res.TableID); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// ConfirmReservation is the standalone entry point for confirmation path A.
// Business outcomes (expiry, conflict) commit their terminal markers; only
// infrastructure failures roll back.
func ConfirmReservation(p ConfirmParams) (*models.Reservation, error) {
	var res *models.Reservation
	var outcome error
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		r, err := ConfirmReservationTx(tx, p)
		if err != nil {
			if _, ok := AsAPIError(err); ok {
				res = r
				outcome = err
				return nil
			}
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, outcome
}

// RedeemIntentTx materializes a reservation from verified intent claims,
// directly in confirmed status. The availability check and the insert are
// serialized per table with an advisory lock since there is no row to lock
// yet. A conflict leaves nothing behind: no row was held.
func RedeemIntentTx(tx *gorm.DB, claims *types.IntentClaims, paymentID string, requestingUserID *uint) (*models.Reservation, error) {
	if claims.UserID != nil && requestingUserID != nil && *claims.UserID != *requestingUserID {
		return nil, ErrForbidden
	}
	// A retry of an already-redeemed payment returns the existing row, not a
	// conflict with it.
	var existing models.Reservation
	err := db.Locked(tx).
		Where("payment_id = ?", paymentID).
		First(&existing).
		Error
	if err == nil {
		if existing.UserID != nil && requestingUserID != nil && *existing.UserID != *requestingUserID {
			return nil, ErrForbidden
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if claims.TableID != nil {
		if err := db.AcquireTableLock(tx, *claims.TableID); err != nil {
			return nil, err
		}
		settings := ResolveReservationSettings(tx, &claims.RestaurantID)
		conflicts, err := FindConflictingReservations(tx, *claims.TableID, claims.ReservationDate, claims.ReservationTime, settings.DurationMinutes, 0, OccupyingStatuses)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, ErrSlotConflict
		}
	}
	now := time.Now()
	res := models.Reservation{
		RestaurantID:    claims.RestaurantID,
		TableID:         claims.TableID,
		UserID:          claims.UserID,
		CustomerName:    claims.CustomerName,
		CustomerPhone:   claims.CustomerPhone,
		CustomerEmail:   claims.CustomerEmail,
		PartySize:       claims.PartySize,
		ReservationDate: claims.ReservationDate,
		ReservationTime: claims.ReservationTime,
		SpecialRequests: claims.SpecialRequests,
		Status:          types.RESERVATION_CONFIRMED,
		PaymentID:       &paymentID,
		ConfirmedAt:     &now,
	}
	if err := tx.Create(&res).Error; err != nil {
		return nil, err
	}
	if res.TableID != nil {
		if err := SyncTableStatus(tx, *res.TableID); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// RedeemIntent is the standalone entry point for confirmation path B.
func RedeemIntent(claims *types.IntentClaims, paymentID string, requestingUserID *uint) (*models.Reservation, error) {
	var res *models.Reservation
	var outcome error
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		r, err := RedeemIntentTx(tx, claims, paymentID, requestingUserID)
		if err != nil {
			if _, ok := AsAPIError(err); ok {
				outcome = err
				return nil
			}
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, outcome
}

// CreateImmediateReservation is the no-payment booking path: the row is
// created directly as confirmed after an availability check that also counts
// legacy pending holds.
func CreateImmediateReservation(body *types.CreateReservationRequestBody, userID *uint) (*models.Reservation, error) {
	var res *models.Reservation
	var outcome error
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if body.TableID != nil {
			if err := db.AcquireTableLock(tx, *body.TableID); err != nil {
				return err
			}
			settings := ResolveReservationSettings(tx, &body.RestaurantID)
			conflicts, err := FindConflictingReservations(tx, *body.TableID, body.ReservationDate, body.ReservationTime, settings.DurationMinutes, 0, OccupyingStatusesWithPending)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				outcome = ErrSlotConflict
				return nil
			}
		}
		now := time.Now()
		r := models.Reservation{
			RestaurantID:    body.RestaurantID,
			TableID:         body.TableID,
			UserID:          userID,
			CustomerName:    body.CustomerName,
			CustomerPhone:   body.CustomerPhone,
			CustomerEmail:   body.CustomerEmail,
			PartySize:       body.PartySize,
			ReservationDate: body.ReservationDate,
			ReservationTime: body.ReservationTime,
			SpecialRequests: body.SpecialRequests,
			Status:          types.RESERVATION_CONFIRMED,
			ConfirmedAt:     &now,
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		if r.TableID != nil {
			if err := SyncTableStatus(tx, *r.TableID); err != nil {
				return err
			}
		}
		res = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return res, nil
}

// cancelLockedTx applies the cancellation policy to an already locked row
// and performs the transition. Tentative rows are always cancellable;
// confirmed rows only outside the resolved cancellation window.
func cancelLockedTx(tx *gorm.DB, res *models.Reservation) error {
	if res.Status == types.RESERVATION_CANCELLED {
		return nil
	}
	if !CanTransition(res.Status, types.RESERVATION_CANCELLED) {
		return ErrInvalidTransition
	}
	if res.Status == types.RESERVATION_CONFIRMED {
		settings := ResolveReservationSettings(tx, &res.RestaurantID)
		startsAt, err := res.StartsAt()
		if err != nil {
			return err
		}
		hoursUntil := time.Until(startsAt).Hours()
		if hoursUntil < float64(settings.CancellationWindowHours) {
			return ErrRefundWindowPassed
		}
	}
	if err := tx.
		Model(&models.Reservation{}).
		Where("id = ?", res.ID).
		Update("status", types.RESERVATION_CANCELLED).
		Error; err != nil {
		return err
	}
	res.Status = types.RESERVATION_CANCELLED
	if res.TableID != nil {
		if err := SyncTableStatus(tx, *res.TableID); err != nil {
			return err
		}
	}
	return nil
}

// CancelReservation cancels by reservation id on behalf of a user, enforcing
// ownership and the cancellation window.
func CancelReservation(reservationID uint, requestingUserID *uint) (*models.Reservation, error) {
	var res models.Reservation
	var outcome error
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := db.Locked(tx).
			Where("id = ?", reservationID).
			First(&res).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ErrReservationNotFound
				return nil
			}
			return err
		}
		if res.UserID != nil && requestingUserID != nil && *res.UserID != *requestingUserID {
			outcome = ErrForbidden
			return nil
		}
		if err := cancelLockedTx(tx, &res); err != nil {
			if _, ok := AsAPIError(err); ok {
				outcome = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &res, nil
}

// RefundByPayment locates a reservation by its stored payment correlation id
// (or an explicit reservation id) and runs the policy-enforced cancellation.
func RefundByPayment(paymentID string, reservationID *uint) (*models.Reservation, error) {
	var res models.Reservation
	var outcome error
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		q := db.Locked(tx)
		if reservationID != nil {
			q = q.Where("id = ?", *reservationID)
		} else {
			q = q.Where("payment_id = ?", paymentID)
		}
		if err := q.First(&res).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ErrReservationNotFound
				return nil
			}
			return err
		}
		// The payment id is the correlation key; an explicit reservation id
		// only narrows the lookup, it never overrides the key.
		if res.PaymentID == nil || *res.PaymentID != paymentID {
			outcome = ErrReservationNotFound
			return nil
		}
		if err := cancelLockedTx(tx, &res); err != nil {
			if _, ok := AsAPIError(err); ok {
				outcome = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &res, nil
}

// CancelByPaymentIDTx is the refund-webhook path: provider-confirmed refunds
// bypass the cancellation window. Returns the reservation and whether a
// transition happened; a missing or already terminal reservation is a no-op.
func CancelByPaymentIDTx(tx *gorm.DB, paymentID string) (*models.Reservation, bool, error) {
	var res models.Reservation
	if err := db.Locked(tx).
		Where("payment_id = ?", paymentID).
		First(&res).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if res.Status != types.RESERVATION_CONFIRMED && res.Status != types.RESERVATION_TENTATIVE {
		return &res, false, nil
	}
	if err := tx.
		Model(&models.Reservation{}).
		Where("id = ?", res.ID).
		Update("status", types.RESERVATION_CANCELLED).
		Error; err != nil {
		return nil, false, err
	}
	res.Status = types.RESERVATION_CANCELLED
	if res.TableID != nil {
		if err := SyncTableStatus(tx, *res.TableID); err != nil {
			return nil, false, err
		}
	}
	return &res, true, nil
}

// UpdateReservationStatus applies a staff transition (seated, completed,
// no_show) through the state machine and keeps the table flag in sync.
func UpdateReservationStatus(reservationID uint, next types.ReservationStatus) (*models.Reservation, error) {
	var res models.Reservation
	var outcome error
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := db.Locked(tx).
			Where("id = ?", reservationID).
			First(&res).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ErrReservationNotFound
				return nil
			}
			return err
		}
		if res.Status == next {
			return nil
		}
		if !CanTransition(res.Status, next) {
			outcome = ErrInvalidTransition
			return nil
		}
		if err := tx.
			Model(&models.Reservation{}).
			Where("id = ?", res.ID).
			Update("status", next).
			Error; err != nil {
			return err
		}
		res.Status = next
		if res.TableID != nil {
			if err := SyncTableStatus(tx, *res.TableID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &res, nil
}

// ExpireStaleTentative flips tentative rows whose hold lapsed to expired.
// Lazy expiry at confirmation time remains the correctness mechanism; this
// only freshens listings when the reaper job is enabled.
func ExpireStaleTentative() {
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Reservation{}).
			Where("status = ?", types.RESERVATION_TENTATIVE).
			Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
			Update("status", types.RESERVATION_EXPIRED).
			Error
	})
	if err != nil {
		log.Printf("[reaper] Error expiring stale reservations: %s\n", err.Error())
	}
}
