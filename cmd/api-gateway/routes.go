package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(app.metrics, "/metrics"))

	r.GET("/health", app.metricsH.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := app.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", app.metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Signed tokens carry their own authorization.
	api.GET("/exports/:token", app.views.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(app.auth))
	editors := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	secured.GET("/metrics/summary", editors, app.metricsH.Summary)

	secured.GET("/calendar", app.calendar.Get)
	secured.PUT("/calendar/days/:day/periods/:periodId", editors, app.calendar.UpsertPeriod)

	timetables := secured.Group("/timetables")
	timetables.GET("", app.timetables.List)
	timetables.POST("", editors, app.timetables.Create)
	timetables.POST("/generate", editors, app.generation.Generate)
	timetables.GET("/:id", app.timetables.Get)
	timetables.DELETE("/:id", editors, app.timetables.Delete)
	timetables.POST("/:id/slots", editors, app.timetables.AddSlot)
	timetables.PUT("/:id/slots", editors, app.timetables.ReplaceSlots)
	timetables.PATCH("/:id/slots/:slotId", editors, app.timetables.MoveSlot)
	timetables.DELETE("/:id/slots/:slotId", editors, app.timetables.RemoveSlot)
	timetables.POST("/:id/status", editors, app.timetables.SetStatus)
	timetables.GET("/:id/conflicts", app.timetables.Conflicts)
	timetables.POST("/:id/conflicts/:conflictId/resolve", editors, app.timetables.ResolveConflict)
	timetables.GET("/:id/views/:mode", app.views.View)
	timetables.GET("/:id/export", app.views.Export)
	timetables.POST("/:id/exports", app.views.StoreExport)

	jobs := secured.Group("/generation-jobs", editors)
	jobs.POST("", app.generation.SubmitJob)
	jobs.GET("", app.generation.ListJobs)
	jobs.GET("/:id", app.generation.JobStatus)
	jobs.DELETE("/:id", app.generation.CancelJob)

	return r
}
