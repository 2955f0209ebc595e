package user

import (
	"errors"
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

// Register creates a member account and returns a token pair.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	u, accessToken, refreshToken, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		api.Error(c, err)
		return
	}

	api.Created(c, "User registered successfully", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         u,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	u, accessToken, refreshToken, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.Fail(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		api.Error(c, err)
		return
	}

	api.OK(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         u,
	})
}

func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		api.Error(c, err)
		return
	}

	api.OK(c, "", u)
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	accessToken, u, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.Fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		api.Error(c, err)
		return
	}

	api.OK(c, "", LoginResponse{AccessToken: accessToken, User: u})
}

func (h *Handler) ListUsers(c *gin.Context) {
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

func (h *Handler) UpdateStatus(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		api.Fail(c, http.StatusBadRequest, "User ID must be a valid integer")
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.svc.SetStatus(c.Request.Context(), adminID, id, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "User status updated successfully", u)
}
