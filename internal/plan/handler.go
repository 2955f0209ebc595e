package plan

import (
	"net/http"
	"strconv"

	"gymflow/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// ListPlans returns active plans. Admin listings pass active_only=false.
func (h *Handler) ListPlans(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") != "false"

	plans, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", plans)
}

func (h *Handler) ListAllPlans(c *gin.Context) {
	plans, err := h.svc.List(c.Request.Context(), false)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", plans)
}

func (h *Handler) GetPlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetPlan(c.Request.Context(), id)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", p)
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.Created(c, "Subscription plan created successfully", p)
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Subscription plan updated successfully", p)
}

func (h *Handler) TogglePlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}

	p, err := h.svc.ToggleActive(c.Request.Context(), id)
	if err != nil {
		api.Error(c, err)
		return
	}

	msg := "Subscription plan deactivated"
	if p.IsActive {
		msg = "Subscription plan activated"
	}
	api.OK(c, msg, p)
}

func (h *Handler) DeletePlan(c *gin.Context) {
	id, ok := planID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Subscription plan deleted successfully", nil)
}

func planID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		api.Fail(c, http.StatusBadRequest, "Invalid plan ID")
		return 0, false
	}
	return id, true
}
