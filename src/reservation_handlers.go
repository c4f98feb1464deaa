package main

import (
	"errors"
	"log"
	"net/http"
	"rbs/src/common"
	"rbs/src/db"
	"rbs/src/lib"
	"rbs/src/middlewares"
	"rbs/src/models"
	"rbs/src/types"
	"rbs/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// requestingUser returns the authenticated user id when the request carries
// one. Guest requests return nil.
func requestingUser(ctx *gin.Context) *uint {
	if v, ok := ctx.Get("id"); ok {
		if id, ok := v.(uint); ok {
			return &id
		}
	}
	return nil
}

func respondAPIError(ctx *gin.Context, err error) {
	if apiErr, ok := common.AsAPIError(err); ok {
		ctx.JSON(apiErr.Status, gin.H{"code": apiErr.Code, "error": apiErr.Message})
		return
	}
	log.Print(err.Error())
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// reservationPublicRoutes hosts the flows reachable without an account:
// intent creation, the two confirmation paths, refunds keyed by payment id
// and the availability preview. A bearer token is honored when present.
func reservationPublicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.Use(middlewares.OptionalAuth)
	apiv1.
		POST("/reservations/intent", func(ctx *gin.Context) {
			var body types.CreateIntentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userID := requestingUser(ctx)
			if userID == nil {
				userID = body.UserID
			}
			// Advisory preview only. No lock is taken and no row is written;
			// the binding check happens again at redemption.
			if body.TableID != nil {
				conn := db.GetDb()
				settings := common.ResolveReservationSettings(conn, &body.RestaurantID)
				conflicts, err := common.FindConflictingReservations(conn, *body.TableID, body.ReservationDate, body.ReservationTime, settings.DurationMinutes, 0, common.OccupyingStatuses)
				if err != nil {
					respondAPIError(ctx, err)
					return
				}
				if len(conflicts) > 0 {
					respondAPIError(ctx, common.ErrSlotConflict)
					return
				}
			}
			token, expiresAt, err := utils.GenerateIntentToken(&types.IntentClaims{
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
			})
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"intent_token": token, "expires_at": expiresAt})
		}).
		POST("/reservations/confirm", func(ctx *gin.Context) {
			var body types.ConfirmReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if (body.ReservationID == nil) == (body.IntentToken == nil) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of reservation_id and intent_token is required"})
				return
			}
			userID := requestingUser(ctx)
			var res *models.Reservation
			var err error
			if body.ReservationID != nil {
				res, err = common.ConfirmReservation(common.ConfirmParams{
					PaymentID:        body.PaymentID,
					ReservationID:    *body.ReservationID,
					RequestingUserID: userID,
				})
			} else {
				var claims *types.IntentClaims
				claims, err = utils.ParseIntentToken(*body.IntentToken)
				if err != nil {
					if errors.Is(err, jwt.ErrTokenExpired) {
						respondAPIError(ctx, common.ErrReservationExpired)
					} else {
						respondAPIError(ctx, common.ErrInvalidIntentToken)
					}
					return
				}
				res, err = common.RedeemIntent(claims, body.PaymentID, userID)
				if err == nil {
					// Marked after commit so a failed redemption never burns
					// the token. Retries stay safe either way: redemption is
					// idempotent per payment id.
					ttl := time.Minute
					if claims.ExpiresAt != nil {
						ttl = time.Until(claims.ExpiresAt.Time)
					}
					lib.ClaimIntentToken(claims.ID, ttl)
				}
			}
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			common.NotifyReservationConfirmed(res)
			ctx.JSON(http.StatusOK, gin.H{"data": res})
		}).
		POST("/reservations/refund", func(ctx *gin.Context) {
			var body types.RefundRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res, err := common.RefundByPayment(body.PaymentID, body.ReservationID)
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"refunded": true, "data": res})
		}).
		GET("/availability", func(ctx *gin.Context) {
			var query types.AvailabilityQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			conn := db.GetDb()
			var table models.Table
			if err := conn.
				Model(&models.Table{}).
				Where(&models.Table{ID: query.TableID}).
				First(&table).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			settings := common.ResolveReservationSettings(conn, &table.RestaurantID)
			conflicts, err := common.FindConflictingReservations(conn, query.TableID, query.Date, query.Time, settings.DurationMinutes, 0, common.OccupyingStatuses)
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"available":        len(conflicts) == 0,
				"conflicts":        len(conflicts),
				"duration_minutes": settings.DurationMinutes,
			})
		})
	return apiv1
}

// reservationHandlers hosts the account-bound reservation surface.
func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/reservations", func(ctx *gin.Context) {
			var body types.CreateReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userID := ctx.GetUint("id")
			res, err := common.CreateImmediateReservation(&body, &userID)
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			common.NotifyReservationConfirmed(res)
			ctx.JSON(http.StatusCreated, gin.H{"data": res})
		}).
		GET("/reservations", func(ctx *gin.Context) {
			userID := ctx.GetUint("id")
			db := db.GetDb()
			var reservations []models.Reservation
			if err := db.
				Model(&models.Reservation{}).
				Where(&models.Reservation{UserID: &userID}).
				Preload("Table").
				Preload("Restaurant").
				Order("reservation_date desc, reservation_time desc").
				Find(&reservations).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservations, "count": len(reservations)})
		}).
		GET("/reservations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var res models.Reservation
			if err := db.
				Model(&models.Reservation{}).
				Where(&models.Reservation{ID: params.ID}).
				Preload("Table").
				Preload("Restaurant").
				First(&res).
				Error; err != nil {
				respondAPIError(ctx, common.ErrReservationNotFound)
				return
			}
			userID := ctx.GetUint("id")
			role := ctx.GetString("role")
			if res.UserID != nil && *res.UserID != userID && role != "staff" && role != "admin" {
				respondAPIError(ctx, common.ErrForbidden)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": res})
		}).
		PUT("/reservations/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userID := ctx.GetUint("id")
			res, err := common.CancelReservation(params.ID, &userID)
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": res})
		}).
		PUT("/reservations/:id/status", func(ctx *gin.Context) {
			role := ctx.GetString("role")
			if role != "staff" && role != "admin" {
				respondAPIError(ctx, common.ErrForbidden)
				return
			}
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateReservationStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res, err := common.UpdateReservationStatus(params.ID, body.Status)
			if err != nil {
				respondAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": res})
		}).
		GET("/reservations/:id/orders", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var orders []models.Order
			err := db.Transaction(func(tx *gorm.DB) error {
				return tx.
					Model(&models.Order{}).
					Where(&models.Order{ReservationID: &params.ID}).
					Find(&orders).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": orders, "count": len(orders)})
		})
	return g
}
