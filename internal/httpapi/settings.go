package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hannsv/PillGood/internal/dispatcher"
)

func (h *Handler) SlotHours(c *gin.Context) {
	hours, err := h.service.SlotHours(c.Request.Context())
	if err != nil {
		h.writeError(c, "SlotHours", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours": hours})
}

func (h *Handler) SetSlotHour(c *gin.Context) {
	slot, ok := paramSlot(c)
	if !ok {
		return
	}
	var req struct {
		Hour *int `json:"hour"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Hour == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hour is required"})
		return
	}
	if err := h.service.SetSlotHour(c.Request.Context(), slot, *req.Hour); err != nil {
		h.writeError(c, "SetSlotHour", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot, "hour": *req.Hour})
}

func (h *Handler) NotificationSwitch(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.service.NotificationsEnabled()})
}

func (h *Handler) SetNotificationSwitch(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}
	if err := h.service.SetNotificationsEnabled(c.Request.Context(), *req.Enabled); err != nil {
		h.writeError(c, "SetNotificationSwitch", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

type notificationView struct {
	Identifier  string  `json:"identifier"`
	Kind        string  `json:"kind"`
	Schedule    string  `json:"schedule"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	NextFireAt  string  `json:"next_fire_at"`
	LastFiredAt *string `json:"last_fired_at"`
}

func (h *Handler) ListNotifications(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context())
	if err != nil {
		h.writeError(c, "ListNotifications", err)
		return
	}
	loc := h.engine.Now().Location()
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		v := notificationView{
			Identifier: n.Identifier,
			Kind:       string(n.Kind),
			Schedule:   n.Describe(),
			Title:      n.Title,
			Body:       n.Body,
			NextFireAt: n.NextFireAt.In(loc).Format(time.RFC3339),
		}
		if n.LastFiredAt != nil {
			last := n.LastFiredAt.In(loc).Format(time.RFC3339)
			v.LastFiredAt = &last
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *Handler) TestNotification(c *gin.Context) {
	if err := h.sender.SendReminder(c.Request.Context(), dispatcher.TestReminder(h.engine.Now())); err != nil {
		h.writeError(c, "TestNotification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
