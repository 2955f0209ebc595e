package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"gymflow/internal/api"
	"gymflow/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// Health runs every check and answers 503 when any of them fails.
func Health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp := api.HealthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		c.JSON(status, resp)
	}
}

// Mailer queues a plain message through the mail worker.
type Mailer interface {
	Send(ctx context.Context, to, name, subject, body string) error
}

type testEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func SendTestEmail(mailer Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req testEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			api.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if mailer == nil {
			api.Fail(c, http.StatusServiceUnavailable, "Email is not configured")
			return
		}

		if err := mailer.Send(c.Request.Context(), req.Email, "GymFlow Admin", "Test email from GymFlow", "Email delivery is working."); err != nil {
			api.Error(c, err)
			return
		}
		api.OK(c, "Email queued successfully", nil)
	}
}

func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
