package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flowpilot/internal/automation"
	"flowpilot/internal/config"
	"flowpilot/internal/database"
	"flowpilot/internal/handlers"
	"flowpilot/internal/jobs"
	"flowpilot/internal/logging"
	"flowpilot/internal/middleware"
	"flowpilot/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting FlowPilot Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DB: %s)", cfg.Port, cfg.DatabaseURL)

	// Initialize database (SQLite by default, MySQL via mysql:// DSN)
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Each server process gets an instance ID so cross-instance pub/sub can
	// skip events it published itself
	instanceID := uuid.NewString()

	// Initialize core services
	taskService := services.NewTaskService(db)
	ruleService := services.NewRuleService(db)
	notificationService := services.NewNotificationService(db)
	settingsService := services.NewSettingsService(db)
	statsService := services.NewStatsService(taskService)
	connManager := services.NewConnectionManager()

	services.InitMetrics(connManager)
	log.Println("📊 Automation metrics registered")

	engine := automation.New()
	automationService := services.NewAutomationService(
		engine,
		taskService,
		ruleService,
		notificationService,
		settingsService,
		statsService,
		connManager,
	)

	// Initialize Redis (optional - enables multi-instance fanout and the
	// distributed overdue-check lock)
	var redisService *services.RedisService
	var pubsubService *services.PubSubService
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (running single-instance)", err)
			redisService = nil
		} else {
			defer redisService.Close()
			log.Println("✅ Redis connected successfully")

			pubsubService = services.NewPubSubService(redisService, connManager, instanceID)
			if err := pubsubService.Start(); err != nil {
				log.Printf("⚠️ Failed to start PubSub: %v", err)
				pubsubService = nil
			} else {
				automationService.SetPubSub(pubsubService)
				log.Println("✅ Cross-instance notification fanout enabled")
			}
		}
	}

	// Overdue check scheduler
	schedulerService, err := services.NewSchedulerService(automationService, redisService, cfg.OverdueCheckInterval, cfg.OverdueCheckCron)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	schedulerService.Start()
	defer schedulerService.Stop()

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("retention_cleanup", jobs.NewRetentionCleanupJob(notificationService, cfg.NotificationRetentionDays))
	jobScheduler.Start()
	log.Printf("🕐 Background jobs: notification retention cleanup (daily 2 AM, keep %d days)", cfg.NotificationRetentionDays)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "FlowPilot v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB is plenty for task/rule payloads
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("flowpilot")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.WebSocketMax,
	)

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard
	// origins; with a wildcard the frontend is same-origin anyway.
	allowCredentials := cfg.AllowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	// Global API rate limiter
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Println("🛡️  [RATE-LIMIT] Global API rate limiter enabled")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(connManager, schedulerService)
	taskHandler := handlers.NewTaskHandler(taskService, automationService)
	ruleHandler := handlers.NewRuleHandler(ruleService, automationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	statsHandler := handlers.NewStatsHandler(statsService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	wsHandler := handlers.NewWebSocketHandler(connManager)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")

	api.Get("/tasks", taskHandler.List)
	api.Post("/tasks", taskHandler.Create)
	api.Get("/tasks/:id", taskHandler.Get)
	api.Put("/tasks/:id", taskHandler.Update)
	api.Delete("/tasks/:id", taskHandler.Delete)
	api.Post("/tasks/:id/complete", taskHandler.Complete)

	api.Get("/rules", ruleHandler.List)
	api.Post("/rules", ruleHandler.Create)
	api.Post("/rules/run-overdue-check", ruleHandler.RunOverdueCheck)
	api.Get("/rules/:id", ruleHandler.Get)
	api.Put("/rules/:id", ruleHandler.Update)
	api.Delete("/rules/:id", ruleHandler.Delete)
	api.Post("/rules/:id/toggle", ruleHandler.Toggle)

	api.Get("/notifications", notificationHandler.List)
	api.Post("/notifications/read-all", notificationHandler.MarkAllRead)
	api.Post("/notifications/:id/read", notificationHandler.MarkRead)
	api.Delete("/notifications/:id", notificationHandler.Delete)

	api.Get("/stats", statsHandler.Get)
	api.Get("/settings", settingsHandler.Get)
	api.Put("/settings", settingsHandler.Update)

	// WebSocket notification stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			c.Locals("client_ip", c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	wsConfig := websocket.Config{
		Origins: strings.Split(cfg.AllowedOrigins, ","),
	}

	app.Use("/ws/notifications", middleware.WebSocketRateLimiter(rateLimitConfig))
	app.Get("/ws/notifications", websocket.New(wsHandler.Handle, wsConfig))

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()

		if err := schedulerService.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}

		if pubsubService != nil {
			pubsubService.Stop()
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
