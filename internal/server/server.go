package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gymflow/internal/attendance"
	"gymflow/internal/auth"
	"gymflow/internal/class"
	"gymflow/internal/coach"
	"gymflow/internal/config"
	"gymflow/internal/dashboard"
	"gymflow/internal/logger"
	"gymflow/internal/notification"
	"gymflow/internal/plan"
	"gymflow/internal/subscription"
	"gymflow/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Tokens        *auth.Issuer
	Users         user.Service
	Plans         plan.Service
	Subscriptions subscription.Service
	Classes       class.Service
	Attendance    attendance.Service
	Notifications notification.Service
	Coaches       coach.Service
	Dashboard     dashboard.Service
}

// Check reports whether a backing dependency is reachable.
type Check func(ctx context.Context) error

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, svc Services, checks map[string]Check, mailer Mailer) *Server {
	registerValidators()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(cfg.CORSOrigins),
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst),
		JSONBodyMiddleware(maxBodyBytes),
	)

	router.GET("/health", Health(checks))
	router.GET("/metrics", Metrics())

	userHandler := user.NewHandler(svc.Users)
	planHandler := plan.NewHandler(svc.Plans)
	subHandler := subscription.NewHandler(svc.Subscriptions)
	classHandler := class.NewHandler(svc.Classes)
	attendanceHandler := attendance.NewHandler(svc.Attendance)
	notificationHandler := notification.NewHandler(svc.Notifications)
	coachHandler := coach.NewHandler(svc.Coaches)
	dashboardHandler := dashboard.NewHandler(svc.Dashboard)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	staff := auth.RequireRole(auth.RoleStaff, auth.RoleAdmin)
	coaches := auth.RequireRole(auth.RoleCoach, auth.RoleAdmin)
	admins := auth.RequireRole(auth.RoleAdmin)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(svc.Tokens))
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/plans", planHandler.ListPlans)
		protected.GET("/plans/:id", planHandler.GetPlan)

		subs := protected.Group("/subscriptions")
		subs.POST("", auth.RequireRole(auth.RoleMember), subHandler.Create)
		subs.GET("/my", subHandler.ListMine)
		subs.PATCH("/:id/cancel", subHandler.RequestCancellation)
		subs.GET("", staff, subHandler.List)
		subs.GET("/:id", staff, subHandler.Get)
		subs.PATCH("/:id/confirm", staff, subHandler.Confirm)
		subs.PATCH("/:id/reject", staff, subHandler.Reject)
		subs.PATCH("/:id/freeze", staff, subHandler.Freeze)
		subs.PATCH("/:id/unfreeze", staff, subHandler.Unfreeze)

		classes := protected.Group("/classes")
		classes.GET("", classHandler.List)
		classes.GET("/my/joined", classHandler.ListJoined)
		classes.GET("/my/classes", coaches, classHandler.ListMine)
		classes.GET("/:id", classHandler.Get)
		classes.POST("/:id/join", classHandler.Join)
		classes.POST("/:id/leave", classHandler.Leave)
		classes.GET("/:id/participants", coaches, classHandler.Participants)
		classes.POST("", coaches, classHandler.Create)
		classes.PUT("/:id", coaches, classHandler.Update)
		classes.PATCH("/:id/capacity", admins, classHandler.UpdateCapacity)
		classes.PATCH("/:id/cancel", admins, classHandler.Cancel)
		classes.DELETE("/:id", admins, classHandler.Delete)

		visits := protected.Group("/attendance")
		visits.POST("/check-in", staff, attendanceHandler.CheckIn)
		visits.POST("/check-out", staff, attendanceHandler.CheckOut)
		visits.GET("/users/:id", attendanceHandler.ListForUser)

		notes := protected.Group("/notifications")
		notes.GET("", notificationHandler.ListNotifications)
		notes.GET("/unread-count", notificationHandler.UnreadCount)
		notes.PATCH("/read-all", notificationHandler.MarkAllRead)
		notes.PATCH("/:id/read", notificationHandler.MarkRead)

		assignments := protected.Group("/coach-assignments")
		assignments.GET("/my-coach", coachHandler.MyCoach)
		assignments.GET("/my-users", coaches, coachHandler.MyUsers)
		assignments.GET("", staff, coachHandler.List)
		assignments.GET("/:id", staff, coachHandler.Get)
		assignments.POST("", staff, coachHandler.Create)
		assignments.PUT("/:id", staff, coachHandler.Update)
		assignments.DELETE("/:id", staff, coachHandler.Delete)

		protected.GET("/dashboard/staff", staff, dashboardHandler.Staff)
	}

	admin := router.Group("/admin")
	admin.Use(auth.AuthMiddleware(svc.Tokens), admins)
	{
		admin.GET("/plans", planHandler.ListAllPlans)
		admin.POST("/plans", planHandler.CreatePlan)
		admin.PUT("/plans/:id", planHandler.UpdatePlan)
		admin.PATCH("/plans/:id/toggle", planHandler.TogglePlan)
		admin.DELETE("/plans/:id", planHandler.DeletePlan)
		admin.GET("/users", userHandler.ListUsers)
		admin.PATCH("/users/:id/status", userHandler.UpdateStatus)
		admin.GET("/dashboard", dashboardHandler.Admin)
		admin.GET("/dashboard/revenue", dashboardHandler.Revenue)
		admin.POST("/test-email", SendTestEmail(mailer))
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
