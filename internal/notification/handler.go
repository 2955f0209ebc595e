package notification

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

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	unreadOnly := c.Query("unread_only") == "true"

	list, err := h.svc.List(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", list)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", gin.H{"count": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), userID, id); err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Notification marked as read", nil)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	n, err := h.svc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "All notifications marked as read", gin.H{"updated": n})
}
