package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "codybuddy/internal/handler/http"
	wsHandler "codybuddy/internal/handler/websocket"
	"codybuddy/internal/hub"
	"codybuddy/internal/infra/judge0"
	amqppub "codybuddy/internal/infra/messaging/amqp"
	gormpersistence "codybuddy/internal/infra/persistence/gorm"
	"codybuddy/internal/infra/setup"
	redisstate "codybuddy/internal/infra/state/redis"
	"codybuddy/internal/middleware"
	"codybuddy/internal/repository"
	"codybuddy/internal/service"
	"codybuddy/internal/session"
	"codybuddy/internal/worker"
)

const (
	// bound on draining pending code writes at shutdown
	shutdownTimeout = 10 * time.Second
	// bound on each in-process CodeDocument write
	storeWriteTimeout = 5 * time.Second
)

// App holds every long-lived component of the server
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Writer      service.CodeWriter
	Worker      *worker.WorkerServer
	Publisher   *amqppub.Publisher
	Hub         *hub.Hub
	HttpServer  *http.Server
}

// NewLogger builds the process logger: text in development, JSON in production
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	return log
}

// NewApp loads configuration and wires all components
func NewApp() (*App, error) {
	// 1. config
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. logger; components log through the standard logrus logger
	log := NewLogger(cfg)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)
	logrus.SetOutput(log.Out)
	log.WithFields(logrus.Fields{"env": cfg.AppEnv, "level": log.Level.String()}).Info("Configuration loaded")

	app := &App{Config: cfg, Log: log}
	if err := app.build(); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

func (a *App) build() error {
	cfg, log := a.Config, a.Log

	// 3. infrastructure
	db, err := setup.InitDB(setup.DBOptions{
		Driver:     cfg.DBDriver,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	a.DB = db
	if err := setup.MigrateDB(db); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.WithField("driver", cfg.DBDriver).Info("Database initialized and migrated")

	var stateRepo repository.StateRepository
	if cfg.RedisAddr != "" {
		redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to init Redis: %w", err)
		}
		a.RedisClient = redisClient
		stateRepo = redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)
		log.Info("Redis client initialized")
	} else {
		log.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	var publisher repository.EventPublisher = amqppub.NoopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := amqppub.NewPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to init AMQP publisher: %w", err)
		}
		a.Publisher = p
		publisher = p
		log.WithField("queue", cfg.AMQPQueue).Info("AMQP publisher initialized")
	}

	// 4. repositories
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	codeRepo := gormpersistence.NewGormCodeRepository(db)
	snapshotRepo := gormpersistence.NewGormSnapshotRepository(db)

	// 5. code writer
	switch cfg.PersistMode {
	case PersistQueue:
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		a.Writer = worker.NewTaskWriter(asynq.NewClient(redisOpt), storeWriteTimeout)
		a.Worker = worker.NewWorkerServer(redisOpt, codeRepo, log)
		log.Info("Code writes go through the asynq queue")
	default:
		a.Writer = service.NewCoalescingWriter(codeRepo, storeWriteTimeout)
		log.Info("Code writes are applied in-process")
	}

	// 6. services
	provider := judge0.NewClient(judge0.Config{
		URL:    cfg.Judge0URL,
		APIKey: cfg.RapidAPIKey,
		Host:   cfg.RapidAPIHost,
	}, nil)
	if cfg.RapidAPIKey == "" {
		log.Warn("RAPIDAPI_KEY not set, run-code requests will report a missing key")
	}
	collabService := service.NewCollaborationService(roomRepo, codeRepo, a.Writer, cfg.PersistLanguage)
	executionService := service.NewExecutionService(provider, service.ExecutionConfig{
		PollInterval: cfg.ExecPoll,
		MaxAttempts:  cfg.ExecAttempts,
		Timeout:      cfg.ExecTimeout,
	})
	snapshotService := service.NewSnapshotService(snapshotRepo, publisher)

	// 7. hub
	a.Hub = hub.NewHub(session.NewRegistry(), collabService, executionService, snapshotService, stateRepo, cfg.EventRateLimit)

	// 8. router
	a.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.router(collabService, snapshotService, stateRepo),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (a *App) router(collab *service.CollaborationService, snaps *service.SnapshotService, stateRepo repository.StateRepository) *gin.Engine {
	cfg := a.Config
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(a.Log))
	router.Use(CORSMiddleware(cfg.CORSAllowedOrigin))

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	router.GET("/ws", wsHandler.NewWebSocketHandler(a.Hub, cfg.CORSAllowedOrigin).HandleConnection)

	api := router.Group("/api")
	if stateRepo != nil {
		api.Use(middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow))
	}
	roomHandler := httpHandler.NewRoomHandler(collab, snaps, a.Hub)
	rooms := api.Group("/rooms/:roomId")
	{
		rooms.GET("/code", roomHandler.GetCode)
		rooms.GET("/snapshots", roomHandler.ListSnapshots)
		rooms.GET("/members", roomHandler.GetMembers)
	}
	return router
}

// Start runs the hub, the queue worker (if any) and the HTTP server in the background
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	if a.Worker != nil {
		go a.Worker.Start()
	}

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
}

// Shutdown stops accepting connections, closes all clients, drains pending code writes and
// releases infrastructure. Components that were never built are skipped.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 1. stop the HTTP server so no new sockets arrive
	if a.HttpServer != nil {
		if err := a.HttpServer.Shutdown(ctx); err != nil {
			a.Log.WithError(err).Error("Error shutting down HTTP server")
		}
	}

	// 2. close every client and wait for in-flight run requests
	if a.Hub != nil {
		a.Hub.Stop()
	}

	// 3. flush pending code writes
	if a.Writer != nil {
		if err := a.Writer.Close(ctx); err != nil {
			a.Log.WithError(err).Error("Pending code writes were not all persisted")
		}
	}

	// 4. let the queue worker finish the tasks it holds
	if a.Worker != nil {
		a.Worker.Shutdown()
	}

	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Log.WithError(err).Warn("Error closing AMQP publisher")
		}
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.WithError(err).Error("Error closing Redis connection")
		}
	}

	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.WithError(err).Error("Error closing database connection")
			}
		}
	}

	a.Log.Info("Application shutdown complete")
}

// CORSMiddleware allows the configured frontend origin
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  time.Since(startTime).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
