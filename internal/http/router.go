package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/printshop/backend/internal/config"
	"github.com/printshop/backend/internal/http/handlers"
	"github.com/printshop/backend/internal/http/middleware"
	"github.com/printshop/backend/internal/service"

	_ "github.com/printshop/backend/docs"
)

func Router(cfg config.Config, store handlers.Store, scheduler *service.Scheduler, tracker *service.Tracker, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		for _, o := range strings.Split(cfg.CORSAllowed, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, o)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Scheduler: scheduler,
		Router:    service.NewRouter(cfg.Scoring),
		Tracker:   tracker,
		Validator: validator.New(),
		Logger:    logger,
		Location:  cfg.Location(),
		Grid:      cfg.GridOptions(),
	}
	Register(r, h, cfg.AdminKey)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Register mounts the API routes on r. Equipment changes, imports and
// debug routes require the admin key.
func Register(r gin.IRouter, h *handlers.Handler, adminKey string) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/equipment", h.EquipmentList)
		api.GET("/equipment/:id/schedule", h.EquipmentSchedule)

		api.GET("/jobs", h.JobsList)
		api.POST("/jobs", h.CreateJob)
		api.GET("/jobs/:id", h.JobDetails)
		api.POST("/jobs/:id/schedule", h.ScheduleJob)
		api.POST("/jobs/:id/unschedule", h.UnscheduleJob)
		api.POST("/jobs/:id/move", h.MoveJob)
		api.POST("/jobs/:id/status", h.UpdateJobStatus)
		api.GET("/jobs/:id/recommendations", h.Recommendations)
		api.GET("/jobs/:id/stages", h.JobStages)
		api.PATCH("/jobs/:id/stages/:stage", h.UpdateJobStage)

		api.POST("/schedule/drop", h.Drop)
		api.GET("/schedule/grid", h.DayGrid)
		api.GET("/schedule/conflicts", h.Conflicts)
		api.GET("/routing/queue", h.RoutingQueue)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(adminKey))
	{
		admin.PATCH("/equipment/:id", h.UpdateEquipment)
		admin.POST("/import", h.Import)
		admin.GET("/debug/compatibility", h.DebugCompatibility)
	}
}
