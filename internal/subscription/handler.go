package subscription

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

func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.RequestSubscription(c.Request.Context(), userID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.Created(c, "Subscription request created successfully. Awaiting employee confirmation.", sub)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	includeRejected := c.Query("include_rejected") == "true"
	list, err := h.svc.ListMine(c.Request.Context(), userID, includeRejected)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", list)
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
	id, ok := subscriptionID(c)
	if !ok {
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", detail)
}

func (h *Handler) Confirm(c *gin.Context) {
	id, staffID, ok := idAndCaller(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if !bindOptional(c, &req) {
		return
	}

	sub, err := h.svc.Confirm(c.Request.Context(), id, staffID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Subscription confirmed successfully", sub)
}

func (h *Handler) Reject(c *gin.Context) {
	id, staffID, ok := idAndCaller(c)
	if !ok {
		return
	}

	var req RejectRequest
	if !bindOptional(c, &req) {
		return
	}

	sub, err := h.svc.Reject(c.Request.Context(), id, staffID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Subscription rejected successfully", sub)
}

func (h *Handler) Freeze(c *gin.Context) {
	id, staffID, ok := idAndCaller(c)
	if !ok {
		return
	}

	var req FreezeRequest
	if !bindOptional(c, &req) {
		return
	}

	sub, err := h.svc.Freeze(c.Request.Context(), id, staffID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Subscription frozen successfully", sub)
}

func (h *Handler) Unfreeze(c *gin.Context) {
	id, staffID, ok := idAndCaller(c)
	if !ok {
		return
	}

	sub, err := h.svc.Unfreeze(c.Request.Context(), id, staffID)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Subscription unfrozen successfully", sub)
}

func (h *Handler) RequestCancellation(c *gin.Context) {
	id, userID, ok := idAndCaller(c)
	if !ok {
		return
	}

	var req CancelRequest
	if !bindOptional(c, &req) {
		return
	}

	sub, err := h.svc.RequestCancellation(c.Request.Context(), id, userID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "Cancellation request submitted successfully. An employee will review your request.", sub)
}

// idAndCaller reads the path id and the caller's user id.
func idAndCaller(c *gin.Context) (int, int, bool) {
	id, ok := subscriptionID(c)
	if !ok {
		return 0, 0, false
	}

	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return 0, 0, false
	}
	return id, userID, true
}

func subscriptionID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		api.Fail(c, http.StatusBadRequest, "Valid subscription ID is required")
		return 0, false
	}
	return id, true
}

// bindOptional binds a JSON body that may be absent.
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
