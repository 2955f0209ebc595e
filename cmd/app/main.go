package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymflow/internal/attendance"
	"gymflow/internal/auth"
	"gymflow/internal/class"
	"gymflow/internal/coach"
	"gymflow/internal/config"
	"gymflow/internal/dashboard"
	"gymflow/internal/db"
	"gymflow/internal/email"
	"gymflow/internal/logger"
	"gymflow/internal/notification"
	"gymflow/internal/plan"
	"gymflow/internal/server"
	"gymflow/internal/subscription"
	"gymflow/internal/user"

	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()
	logger.Info("Starting GymFlow")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed", "path", cfg.MigrationsPath)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	mail := email.New(rdb, newTransport(cfg))
	defer mail.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mail.Start(ctx)

	tokens, err := auth.NewIssuer(cfg.JWTSecret)
	if err != nil {
		logger.Fatalf("Failed to set up tokens: %v", err)
	}

	userRepo := user.NewRepository(database)
	notifications := notification.NewRepository(database)

	dispatcher := notification.NewDispatcher(notifications, userRepo, mail, cfg.NotifyWorkers, notification.DefaultQueueSize)
	dispatcher.Start()

	subscriptions := subscription.NewService(subscription.NewRepository(database), dispatcher, mail)
	services := server.Services{
		Tokens:        tokens,
		Users:         user.NewService(userRepo, tokens),
		Plans:         plan.NewService(plan.NewRepository(database)),
		Subscriptions: subscriptions,
		Classes:       class.NewService(class.NewRepository(database), dispatcher),
		Attendance:    attendance.NewService(attendance.NewRepository(database)),
		Notifications: notification.NewService(notifications),
		Coaches:       coach.NewService(coach.NewRepository(database), dispatcher),
		Dashboard:     dashboard.NewService(dashboard.NewRepository(database)),
	}

	scheduler, err := scheduleJobs(cfg, subscriptions, mail)
	if err != nil {
		logger.Fatalf("Failed to schedule jobs: %v", err)
	}
	scheduler.Start()

	checks := map[string]server.Check{
		"postgres": database.PingContext,
		"redis":    mail.Ping,
	}
	srv := server.New(cfg, services, checks, mail)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
	}

	logger.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}

	<-scheduler.Stop().Done()
	subscriptions.Wait()

	// Drained tasks may still queue email, so the mail worker stops last.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("Notification dispatcher did not drain", "error", err, "dropped", dispatcher.Dropped())
	}
	cancel()

	select {
	case <-mail.Done():
	case <-shutdownCtx.Done():
		logger.Error("Email worker did not stop", "error", shutdownCtx.Err())
	}

	logger.Info("Server stopped")
}

func newTransport(cfg *config.Config) email.Transport {
	if cfg.SendGridAPIKey != "" {
		return email.NewSendGridTransport(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	}
	return email.NewSMTPTransport(cfg.EmailFrom, cfg.EmailFromName, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
}
