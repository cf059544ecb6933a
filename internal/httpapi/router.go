// Package httpapi is the JSON surface over groups, today's doses and settings.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), requestMetrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	groups := r.Group("/groups")
	{
		groups.GET("", h.ListGroups)
		groups.POST("", h.RegisterGroup)
		groups.GET("/:id", h.GetGroup)
		groups.DELETE("/:id", h.DeleteGroup)
		groups.PATCH("/:id/title", h.RenameGroup)
		groups.PATCH("/:id/active", h.SetActive)
		groups.PATCH("/:id/schedules/:slot/time", h.SetScheduleTime)
	}

	r.GET("/today", h.Today)
	r.POST("/today/:groupId/:slot/complete", h.CompleteTask)
	r.POST("/today/:groupId/:slot/skip", h.SkipTask)
	r.GET("/history", h.History)

	r.GET("/settings/slots", h.SlotHours)
	r.PUT("/settings/slots/:slot", h.SetSlotHour)
	r.GET("/settings/notifications", h.NotificationSwitch)
	r.PUT("/settings/notifications", h.SetNotificationSwitch)

	r.GET("/notifications", h.ListNotifications)
	r.POST("/notifications/test", h.TestNotification)

	return r
}
