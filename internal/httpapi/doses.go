package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hannsv/PillGood/internal/models"
)

func (h *Handler) Today(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Today(c.Request.Context()))
}

func (h *Handler) CompleteTask(c *gin.Context) {
	h.record(c, false)
}

func (h *Handler) SkipTask(c *gin.Context) {
	h.record(c, true)
}

// record answers 200 with recorded=false when the task was already resolved today
// or no longer exists
func (h *Handler) record(c *gin.Context, skipped bool) {
	groupID, ok := paramID(c, "groupId")
	if !ok {
		return
	}
	slot, ok := paramSlot(c)
	if !ok {
		return
	}

	var (
		recorded bool
		err      error
	)
	if skipped {
		recorded, err = h.engine.SkipTask(c.Request.Context(), groupID, slot)
	} else {
		recorded, err = h.engine.CompleteTask(c.Request.Context(), groupID, slot)
	}
	if err != nil {
		h.writeError(c, "RecordTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task":     models.TaskKey{GroupID: groupID, Slot: slot}.String(),
		"recorded": recorded,
	})
}

func (h *Handler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.engine.History(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, "History", err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
