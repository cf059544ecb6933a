package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hannsv/PillGood/internal/models"
)

type pillRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Memo    string `json:"memo"`
}

type registerGroupRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Pills       []pillRequest `json:"pills"`
	Slots       []string      `json:"slots"`
	Days        []string      `json:"days"` // empty means every day
	IsActive    *bool         `json:"is_active"`
}

func (r *registerGroupRequest) toNewGroup() (models.NewGroup, error) {
	n := models.NewGroup{
		Title:       r.Title,
		Description: r.Description,
		IsActive:    r.IsActive == nil || *r.IsActive,
	}
	for _, p := range r.Pills {
		n.Pills = append(n.Pills, models.Pill{Name: p.Name, Company: p.Company, Memo: p.Memo})
	}
	for _, s := range r.Slots {
		slot, err := models.ParseSlot(s)
		if err != nil {
			return models.NewGroup{}, err
		}
		n.Slots = append(n.Slots, slot)
	}
	days, err := models.RecurrenceFromTokens(r.Days)
	if err != nil {
		return models.NewGroup{}, err
	}
	n.Days = days
	return n, nil
}

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.service.ListGroups(c.Request.Context())
	if err != nil {
		h.writeError(c, "ListGroups", err)
		return
	}
	if groups == nil {
		groups = []*models.GroupWithSchedules{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *Handler) GetGroup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	g, err := h.service.GetGroup(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "GetGroup", err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) RegisterGroup(c *gin.Context) {
	var req registerGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	n, err := req.toNewGroup()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.service.RegisterGroup(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, "RegisterGroup", err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteGroup(c.Request.Context(), id); err != nil {
		h.writeError(c, "DeleteGroup", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RenameGroup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.service.RenameGroup(c.Request.Context(), id, req.Title); err != nil {
		h.writeError(c, "RenameGroup", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) SetActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
		return
	}
	if err := h.service.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		h.writeError(c, "SetActive", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) SetScheduleTime(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	slot, ok := paramSlot(c)
	if !ok {
		return
	}
	var req struct {
		Time *string `json:"time"` // "" clears the override
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Time == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time is required"})
		return
	}
	if err := h.service.SetScheduleTime(c.Request.Context(), id, slot, *req.Time); err != nil {
		h.writeError(c, "SetScheduleTime", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
