package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"discussion-service/internal/db"
	"discussion-service/internal/handlers"
	"discussion-service/internal/middleware"
	"discussion-service/internal/observability"
	"discussion-service/internal/rabbitmq"
	"discussion-service/internal/remote"
	"discussion-service/internal/repositories"
	"discussion-service/internal/services"
	"discussion-service/internal/telemetry"
)

const serviceName = "discussion-service"

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, os.Getenv("OTLP_ENDPOINT"))
	if err != nil {
		logger.Fatalw("failed to set up tracing", "error", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(logger)
	if err != nil {
		logger.Fatalw("failed to connect to db", "error", err)
	}
	defer database.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	provider := remote.NewClient(
		getEnv("PROVIDER_BASE_URL", "http://localhost:9400"),
		os.Getenv("PROVIDER_SERVICE_KEY"),
		logger,
	)

	auditPublisher := rabbitmq.NewPublisher(os.Getenv("AMQP_URL"), getEnv("AMQP_EXCHANGE", "discussion.events"))
	defer auditPublisher.Close()
	logger.Infow("audit publisher ready",
		"mode", rabbitmq.PublisherMode(auditPublisher),
		"noop_reason", rabbitmq.PublisherNoopReason(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, getEnv("AUDIT_ROUTING_KEY", "audit.discussion"), serviceName, getEnv("ENVIRONMENT", "dev"))

	if eventsURL := os.Getenv("AMQP_URL"); eventsURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(eventsURL, getEnv("AMQP_EXCHANGE", "discussion.events"))
		if err != nil {
			logger.Warnw("domain event publisher disabled", "error", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	tenantRepo := repositories.NewTenantRepo(database)
	userRepo := repositories.NewUserRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	unreadRepo := repositories.NewUnreadRepo(database)
	roleRepo := repositories.NewRoleRepo(database)

	resolver := services.NewTenantConfigResolver(tenantRepo)
	identity := services.NewIdentityBridge(resolver, userRepo, provider, logger)
	membership := services.NewMembershipManager(resolver, identity, channelRepo, messageRepo, unreadRepo, roleRepo, provider, logger)
	channelSync := services.NewChannelSyncEngine(resolver, identity, membership, channelRepo, userRepo, unreadRepo, roleRepo, provider, logger)
	unreadTracker := services.NewUnreadCountTracker(channelRepo, unreadRepo, logger)
	mirror := services.NewMessageMirror(resolver, identity, membership, channelRepo, messageRepo, reactionRepo, unreadTracker, provider, logger)

	reconcileInterval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "5m"))
	if err != nil {
		logger.Fatalw("invalid RECONCILE_INTERVAL", "error", err)
	}
	reconciler := services.NewReconciler(tenantRepo, channelRepo, messageRepo, provider, logger, reconcileInterval)
	go reconciler.Run(ctx)

	channelHandler := handlers.NewChannelHandler(channelSync, membership, audit)
	messageHandler := handlers.NewMessageHandler(mirror, membership, messageRepo, audit)
	unreadHandler := handlers.NewUnreadHandler(unreadTracker)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware([]byte(jwtSecret))

	router.GET("/channels", authMiddleware, channelHandler.ListChannels)
	router.POST("/channels", authMiddleware, channelHandler.CreateChannel)
	router.POST("/channels/general/join", authMiddleware, channelHandler.JoinGeneral)
	router.DELETE("/channels/:channel_id", authMiddleware, channelHandler.DeleteChannel)
	router.GET("/channels/:channel_id/members", authMiddleware, channelHandler.ListMembers)
	router.POST("/channels/:channel_id/members", authMiddleware, channelHandler.AddMember)
	router.DELETE("/channels/:channel_id/members/:user_id", authMiddleware, channelHandler.RemoveMember)
	router.POST("/channels/:channel_id/moderators", authMiddleware, channelHandler.GrantModerator)
	router.DELETE("/channels/:channel_id/moderators/:user_id", authMiddleware, channelHandler.RevokeModerator)

	router.GET("/channels/:channel_id/messages", authMiddleware, messageHandler.ListMessages)
	router.POST("/channels/:channel_id/messages", authMiddleware, messageHandler.SendMessage)
	router.POST("/channels/:channel_id/messages/mirror", authMiddleware, messageHandler.MirrorMessage)
	router.POST("/channels/:channel_id/messages/:message_id/redact", authMiddleware, messageHandler.RedactMessage)
	router.DELETE("/channels/:channel_id/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)
	router.POST("/channels/:channel_id/messages/:message_id/reactions", authMiddleware, messageHandler.React)
	router.DELETE("/channels/:channel_id/messages/:message_id/reactions/:kind", authMiddleware, messageHandler.Unreact)

	router.POST("/channels/:channel_id/read", authMiddleware, unreadHandler.MarkRead)
	router.GET("/channels/:channel_id/unread", authMiddleware, unreadHandler.ChannelUnread)
	router.GET("/unread", authMiddleware, unreadHandler.UnreadSummary)

	handlers.RegisterDebugRoutes(router, audit, os.Getenv("DEBUG_ROUTES") == "true")

	port := getEnv("PORT", "8083")
	logger.Infow("starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
