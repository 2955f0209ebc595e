package coach

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
	id, ok := assignmentID(c)
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", a)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.Created(c, "Coach assignment created successfully", a)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Coach assignment updated successfully", a)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Coach assignment deleted successfully", nil)
}

func (h *Handler) MyUsers(c *gin.Context) {
	coachID, ok := callerID(c)
	if !ok {
		return
	}

	var f ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.svc.MyUsers(c.Request.Context(), coachID, f)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", page)
}

func (h *Handler) MyCoach(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	a, err := h.svc.MyCoach(c.Request.Context(), userID)
	if err != nil {
		api.Error(c, err)
		return
	}
	if a == nil {
		api.OK(c, "No coach assigned", nil)
		return
	}
	api.OK(c, "", a)
}

func callerID(c *gin.Context) (int, bool) {
	id, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
	}
	return id, ok
}

func assignmentID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		api.Fail(c, http.StatusBadRequest, "Assignment ID must be a valid integer")
		return 0, false
	}
	return id, true
}
