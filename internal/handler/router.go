package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ninnin76-design/sm-manager/internal/metrics"
	"github.com/ninnin76-design/sm-manager/internal/middleware"
)

type Handlers struct {
	Tokens    *middleware.Tokens
	Auth      *AuthHandler
	Members   *MemberHandler
	Schedules *ScheduleHandler
	Export    *ExportHandler
	Admin     *AdminHandler
}

func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{middleware.NewTokenHead},
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.POST("/api/login", h.Auth.Login)

	api := r.Group("/api", h.Tokens.JWTAuth())
	api.GET("/me", h.Auth.Me)
	api.GET("/members", h.Members.List)
	api.GET("/schedules", h.Schedules.List)
	api.GET("/schedules/:id", h.Schedules.Get)
	api.GET("/schedules/:id/report", h.Schedules.Report)
	api.PATCH("/schedules/:id/records/:personId", h.Schedules.UpdateRecord)
	api.POST("/report", h.Schedules.DraftReport)

	admin := api.Group("", middleware.AdminOnly())
	admin.POST("/members", h.Members.Add)
	admin.PUT("/members", h.Members.Replace)
	admin.PUT("/members/:id", h.Members.Update)
	admin.DELETE("/members/:id", h.Members.Remove)
	admin.POST("/schedules", h.Schedules.Create)
	admin.PUT("/schedules/:id", h.Schedules.Update)
	admin.DELETE("/schedules/:key", h.Schedules.Delete)
	admin.POST("/schedules/bulk-delete", h.Schedules.BulkDelete)
	admin.GET("/export/schedules", h.Export.Export)
	admin.GET("/files/:name", h.Export.DownloadFile)
	admin.POST("/admin/clear/prepare", h.Admin.Prepare)
	admin.POST("/admin/clear/confirm", h.Admin.Confirm)
	return r
}
