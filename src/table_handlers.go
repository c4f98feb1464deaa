package main

import (
	"net/http"
	"rbs/src/common"
	"rbs/src/db"
	"rbs/src/models"
	"rbs/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// tableStatusValues are the states staff may set directly. Occupied and
// reserved are derived from live reservations and never assigned by hand.
var tableStatusValues = map[string]bool{
	string(types.TABLE_AVAILABLE):   true,
	string(types.TABLE_UNAVAILABLE): true,
}

func tableHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/tables", func(ctx *gin.Context) {
			role := ctx.GetString("role")
			if role != "staff" && role != "admin" {
				respondAPIError(ctx, common.ErrForbidden)
				return
			}
			var body types.CreateTableRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			table := models.Table{
				RestaurantID: body.RestaurantID,
				Number:       body.Number,
				Capacity:     body.Capacity,
			}
			db := db.GetDb()
			if err := db.Create(&table).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": table})
		}).
		PUT("/tables/:id", func(ctx *gin.Context) {
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
			var body map[string]any
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// Only a fixed set of columns is writable here; everything else
			// in the payload is dropped.
			updates := map[string]any{}
			for _, field := range []string{"number", "capacity", "status"} {
				if v, ok := body[field]; ok {
					updates[field] = v
				}
			}
			if v, ok := updates["status"]; ok {
				s, _ := v.(string)
				if !tableStatusValues[s] {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid table status"})
					return
				}
			}
			if len(updates) == 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields in payload"})
				return
			}
			db := db.GetDb()
			var table models.Table
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Table{}).
					Where(&models.Table{ID: params.ID}).
					First(&table).
					Error; err != nil {
					return err
				}
				return tx.
					Model(&table).
					Updates(updates).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": table})
		}).
		GET("/restaurants/:id/tables", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var tables []models.Table
			if err := db.
				Model(&models.Table{}).
				Where(&models.Table{RestaurantID: params.ID}).
				Order("number").
				Find(&tables).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tables, "count": len(tables)})
		})
	return g
}
