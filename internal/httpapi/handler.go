package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hannsv/PillGood/internal/adherence"
	"github.com/hannsv/PillGood/internal/dispatcher"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/hannsv/PillGood/internal/notify"
	"github.com/hannsv/PillGood/internal/service"
	"go.uber.org/zap"
)

// NotificationLister is the persisted gateway, listed for inspection
type NotificationLister interface {
	List(ctx context.Context) ([]*notify.Notification, error)
}

type Handler struct {
	service       *service.Service
	engine        *adherence.Engine
	notifications NotificationLister
	sender        dispatcher.Sender
	logger        *zap.Logger
}

func NewHandler(svc *service.Service, engine *adherence.Engine, notifications NotificationLister, sender dispatcher.Sender, logger *zap.Logger) *Handler {
	return &Handler{
		service:       svc,
		engine:        engine,
		notifications: notifications,
		sender:        sender,
		logger:        logger,
	}
}

func isBadRequest(err error) bool {
	return errors.Is(err, service.ErrValidation) ||
		errors.Is(err, models.ErrInvalidSlot) ||
		errors.Is(err, models.ErrInvalidWeekday) ||
		errors.Is(err, models.ErrNoWeekdays)
}

// writeError maps domain errors to status codes; anything else is logged as a 500
func (h *Handler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case isBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(op+": failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func paramSlot(c *gin.Context) (models.Slot, bool) {
	slot, err := models.ParseSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return slot, true
}
