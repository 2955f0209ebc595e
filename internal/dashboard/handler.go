package dashboard

import (
	"gymflow/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Staff(c *gin.Context) {
	today, err := h.svc.Today(c.Request.Context())
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", today)
}

func (h *Handler) Admin(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", overview)
}

func (h *Handler) Revenue(c *gin.Context) {
	revenue, err := h.svc.Revenue(c.Request.Context(), c.Query("period"))
	if err != nil {
		api.Error(c, err)
		return
	}
	api.OK(c, "", revenue)
}
