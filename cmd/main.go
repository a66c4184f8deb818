package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskflow/internal/auth"
	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/controller"
	"taskflow/internal/database"
	"taskflow/internal/queue"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/routes"
	"taskflow/internal/service"
	"taskflow/internal/worker"
	"taskflow/pkg/logger"
)

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	config.Get()

	db := database.InitDB(ctx)
	if db == nil {
		logger.Error(ctx, "Database not available; exiting")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}

	// Pre-warm Redis (optional; cache works lazily)
	cache.Client(ctx)

	// Pre-warm Kafka producer and ensure the email topic exists
	queue.Producer(ctx)
	queue.EnsureTopic(ctx)

	// Start the email worker in the background (consumes Kafka, sends SMTP)
	go worker.Run(ctx)

	users := repository.NewUsers(db)
	tasks := repository.NewTasks(db)
	notifications := repository.NewNotifications(db)
	audit := repository.NewAudit(db)

	resolver := auth.NewResolver(users)
	hub := realtime.NewHub()
	dispatcher := realtime.NewDispatcher(hub, resolver, notifications)
	taskService := service.NewTasks(tasks, users, notifications, audit, dispatcher)
	dispatcher.AttachTasks(taskService)

	deps := routes.Deps{
		Auth:          controller.NewAuthController(service.NewAuth(users, queue.PublishEmailCommand)),
		Tasks:         controller.NewTaskController(taskService),
		Notifications: controller.NewNotificationController(service.NewNotifications(notifications)),
		Users:         controller.NewUserController(users),
		Dispatcher:    dispatcher,
		Resolver:      resolver,
	}

	server := &http.Server{
		Addr:         ":" + config.Get().HTTPPort,
		Handler:      routes.Router(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", config.Get().HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

// loadEnvFile reads a .env file and sets env vars (only if not already set).
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
