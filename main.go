package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/auth"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), serviceName, cfg.OTLPAddr)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.messaging", serviceName, cfg.Environment)
	observability.SetPublisher(publisher)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()
	relay := ws.NewRelayHandler(hub)

	messageHandler := handlers.NewMessageHandler(messageRepo, auditEmitter)
	healthHandler := handlers.NewHealthHandler(database)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/", handlers.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/messages/thread", authMiddleware, messageHandler.GetThread)
	router.GET("/messages/conversations", authMiddleware, messageHandler.ListConversations)
	router.GET("/messages/all", authMiddleware, messageHandler.ListAllMessages)
	router.GET("/messages/debug-auth", authMiddleware, handlers.DebugAuth)

	router.GET("/ws", relay.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.Debug)

	router.NoRoute(handlers.NotFound)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
