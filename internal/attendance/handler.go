package attendance

import (
	"fmt"
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

func (h *Handler) CheckIn(c *gin.Context) {
	staffID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.CheckIn(c.Request.Context(), staffID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.Created(c, fmt.Sprintf("Check-in successful for %s", rec.UserName), rec)
}

func (h *Handler) CheckOut(c *gin.Context) {
	staffID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.CheckOut(c.Request.Context(), staffID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, fmt.Sprintf("Check-out successful for %s", rec.UserName), rec)
}

// ListForUser serves staff looking at any member and members looking at
// their own history.
func (h *Handler) ListForUser(c *gin.Context) {
	callerID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		api.Fail(c, http.StatusBadRequest, "User ID must be a valid integer")
		return
	}

	role, _ := auth.GetUserRole(c)
	if userID != callerID && role != auth.RoleStaff && role != auth.RoleAdmin {
		api.Fail(c, http.StatusForbidden, "You can only view your own attendance")
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.svc.ListForUser(c.Request.Context(), userID, q)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", records)
}
