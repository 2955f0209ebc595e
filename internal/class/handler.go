package class

import (
	"net/http"
	"strconv"

	"gymflow/internal/api"
	"gymflow/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", page)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}

	cls, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", cls)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	cls, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.Created(c, "Class created successfully", cls)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	cls, err := h.svc.Update(c.Request.Context(), id, actor, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Class updated successfully", cls)
}

func (h *Handler) UpdateCapacity(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}

	var req CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	cls, err := h.svc.UpdateCapacity(c.Request.Context(), id, req.Capacity)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Class capacity updated successfully", cls)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	cls, err := h.svc.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Class cancelled successfully", cls)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Class deleted successfully", nil)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var f ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.svc.ListMine(c.Request.Context(), actor.ID, f)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", page)
}

func (h *Handler) ListJoined(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	classes, err := h.svc.ListJoined(c.Request.Context(), actor.ID)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", classes)
}

func (h *Handler) Participants(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	list, err := h.svc.Participants(c.Request.Context(), id, actor)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", list)
}

func (h *Handler) Join(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req JoinRequest
	if !bindOptional(c, &req) {
		return
	}

	cls, err := h.svc.Join(c.Request.Context(), id, actor.ID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Successfully joined the class", cls)
}

func (h *Handler) Leave(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req LeaveRequest
	if !bindOptional(c, &req) {
		return
	}

	cls, err := h.svc.Leave(c.Request.Context(), id, actor.ID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Successfully left the class", cls)
}

func actorFrom(c *gin.Context) (Actor, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return Actor{}, false
	}
	role, _ := auth.GetUserRole(c)
	return Actor{ID: userID, Role: role}, true
}

func classID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		api.Fail(c, http.StatusBadRequest, "Class ID must be a valid integer")
		return 0, false
	}
	return id, true
}

func bindOptional(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
