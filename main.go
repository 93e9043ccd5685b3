package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/config"
	"marketplace-chat/internal/db"
	"marketplace-chat/internal/handlers"
	"marketplace-chat/internal/health"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/notifications"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/policy"
	"marketplace-chat/internal/presence"
	"marketplace-chat/internal/rabbitmq"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/telemetry"
	"marketplace-chat/internal/ws"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.ServiceName, cfg.Environment)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseDSN, logger); err != nil {
			return err
		}
	}
	database, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	auditor := telemetry.NewAuditEmitter(publisher, observability.RoutingAudit, cfg.ServiceName, cfg.Environment, logger)

	rooms := repositories.NewRoomRepo(database)
	messages := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	directory := repositories.NewDirectoryRepo(database)

	monitor := health.NewMonitor(cfg.ServiceName, logger)
	monitor.Add("postgres", database.PingContext)

	hub := ws.NewHub()

	var registry presence.Registry = presence.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		registry = presence.NewRedis(rdb, cfg.ServiceName+":")
		monitor.Add("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logger.Info("presence backed by redis", "addr", cfg.RedisAddr)
	}

	var broadcaster broadcast.Broadcaster = broadcast.NewLocal(hub)
	if cfg.NATSURL != "" {
		natsCfg := broadcast.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.Name = cfg.ServiceName
		relay, err := broadcast.NewNATSRelay(natsCfg, hub, logger)
		if err != nil {
			return err
		}
		defer relay.Close()
		broadcaster = relay
		monitor.Add("nats", relay.Healthy)
	}

	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		logger.Warn("attachment storage disabled", "reason", "empty GCS_BUCKET")
	}

	notifier := notifications.NewService(notificationRepo, publisher, logger)
	chatService := chat.NewService(chat.Deps{
		Rooms:       rooms,
		Messages:    messages,
		Directory:   directory,
		Filter:      policy.NewFilter(policy.DefaultOptions()),
		Uploader:    uploader,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Auditor:     auditor,
		Logger:      logger,
	}, chat.Options{
		RejectSelfChat:     cfg.SelfChatPolicy == config.SelfChatReject,
		EnforceBlocks:      cfg.EnforceBlocks,
		MaxAttachmentBytes: cfg.MaxAttachmentBytes,
	})

	tokens := auth.NewJWTValidator(cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	messageHandler := handlers.NewMessageHandler(chatService, logger)
	notificationHandler := handlers.NewNotificationHandler(notifier, logger)
	wsHandler := ws.NewHandler(hub, chatService, registry, broadcaster, tokens, cfg.AllowedOrigins, logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), otelgin.Middleware(cfg.ServiceName), observability.HTTPMetricsMiddleware())
	if cfg.IsDevelopment() {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", monitor.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.Handle)

	authMiddleware := middleware.AuthMiddleware(tokens)
	activeUser := middleware.RequireActiveUser(directory, logger)

	api := router.Group("/api", authMiddleware)
	api.POST("/chat/init", activeUser, chatHandler.InitChat)
	api.GET("/chat/user/:userId", chatHandler.ListUserChats)
	api.DELETE("/chat/:roomId", chatHandler.DeleteChat)

	api.POST("/message/send", activeUser, messageHandler.Send)
	api.GET("/message/:roomId", messageHandler.List)
	api.PUT("/message/:roomId/read", messageHandler.MarkRead)

	api.POST("/notification", notificationHandler.Create)
	api.GET("/notification/:userId", notificationHandler.List)
	api.PUT("/notification/:id/read", notificationHandler.MarkRead)

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.HeaderRequestID, "X-Device-Id"}),
	)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           cors(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := health.NewGRPCServer(monitor)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}

	go monitor.Run(ctx, healthInterval)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	monitor.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	hub.CloseAll()
	grpcServer.GracefulStop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", "error", err)
	}
	return serveErr
}
