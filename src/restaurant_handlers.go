package main

import (
	"net/http"
	"rbs/src/common"
	"rbs/src/db"
	"rbs/src/models"
	"rbs/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

func restaurantHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/restaurants", func(ctx *gin.Context) {
			role := ctx.GetString("role")
			if role != "staff" && role != "admin" {
				respondAPIError(ctx, common.ErrForbidden)
				return
			}
			var body types.CreateRestaurantRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			restaurant := models.Restaurant{
				Name:     body.Name,
				Slug:     slug.Make(body.Name),
				Address:  body.Address,
				Phone:    body.Phone,
				Timezone: body.Timezone,
			}
			db := db.GetDb()
			if err := db.Create(&restaurant).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": restaurant})
		}).
		GET("/settings", func(ctx *gin.Context) {
			var query struct {
				RestaurantID *uint `form:"restaurant_id"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var settings []models.ReservationSetting
			q := db.Model(&models.ReservationSetting{})
			if query.RestaurantID != nil {
				q = q.Where("restaurant_id = ?", *query.RestaurantID)
			}
			if err := q.Order("updated_at desc").Find(&settings).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			resolved := common.ResolveReservationSettings(db, query.RestaurantID)
			ctx.JSON(http.StatusOK, gin.H{"data": settings, "resolved": resolved, "count": len(settings)})
		}).
		POST("/settings", func(ctx *gin.Context) {
			role := ctx.GetString("role")
			if role != "staff" && role != "admin" {
				respondAPIError(ctx, common.ErrForbidden)
				return
			}
			var body types.CreateSettingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			setting := models.ReservationSetting{
				RestaurantID:            body.RestaurantID,
				DurationMinutes:         body.DurationMinutes,
				CancellationWindowHours: body.CancellationWindowHours,
			}
			db := db.GetDb()
			if err := db.Create(&setting).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": setting})
		})
	return g
}

// restaurantPublicRoutes exposes the read-only browse surface.
func restaurantPublicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/restaurants", func(ctx *gin.Context) {
			db := db.GetDb()
			var restaurants []models.Restaurant
			if err := db.
				Model(&models.Restaurant{}).
				Order("name").
				Find(&restaurants).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": restaurants, "count": len(restaurants)})
		}).
		GET("/restaurants/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var restaurant models.Restaurant
			if err := db.
				Model(&models.Restaurant{}).
				Where(&models.Restaurant{ID: params.ID}).
				Preload("Tables").
				First(&restaurant).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": restaurant})
		}).
		GET("/restaurants/:id/settings", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			settings := common.ResolveReservationSettings(db, &params.ID)
			ctx.JSON(http.StatusOK, gin.H{"data": settings})
		})
	return apiv1
}
