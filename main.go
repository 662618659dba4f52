package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fintrack/api/auth"
	"fintrack/api/config"
	"fintrack/api/db"
	"fintrack/api/handlers"
	"fintrack/api/kafka"
	"fintrack/api/llm"
	"fintrack/api/logger"
	"fintrack/api/memstore"
	"fintrack/api/middleware"
	"fintrack/api/mongodb"
	"fintrack/api/services"
	"fintrack/api/sse"
	"fintrack/api/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const streamKeepAlive = 25 * time.Second

type repositories struct {
	users     services.UserRepository
	goals     services.GoalRepository
	chats     services.ChatRepository
	snapshots services.SnapshotRepository
	close     func(context.Context)
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Store == config.StoreMemory {
		logger.Get().Warn("using in-memory store, data is lost on restart")
		s := memstore.New()
		return &repositories{
			users: s.Users(), goals: s.Goals(), chats: s.Chats(), snapshots: s.Snapshots(),
			close: func(context.Context) {},
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.Store == config.StorePostgres {
		s, err := db.Connect(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(connectCtx); err != nil {
			s.Close(ctx)
			return nil, err
		}
		return &repositories{users: s, goals: s, chats: s, snapshots: s, close: s.Close}, nil
	}

	s, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureIndexes(connectCtx); err != nil {
		s.Close(ctx)
		return nil, err
	}
	return &repositories{users: s, goals: s, chats: s, snapshots: s, close: s.Close}, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.IsDevelopment(), logger.ParseLevel(cfg.LogLevel)); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStore(ctx, cfg)
	if err != nil {
		logger.Get().Fatal("failed to open store", zap.Error(err))
	}
	defer repos.close(context.Background())

	broker := sse.NewBroker(sse.DefaultStreamBuffer)
	events := services.FanOut{broker}

	var pool *worker.WorkerPool
	if cfg.EventsEnabled() {
		publisher, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			logger.Get().Fatal("failed to initialize event publisher", zap.Error(err))
		}
		defer publisher.Close()

		pool = worker.NewWorkerPool(cfg.Kafka.Workers, worker.DefaultBufferSize, publisher, cfg.Kafka.Topic)
		pool.Start()
		defer pool.Stop()
		events = append(events, pool)
	} else {
		logger.Get().Info("KAFKA_BOOTSTRAP_SERVERS not set, domain events only reach open event streams")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, auth.WithTTL(cfg.TokenTTL))
	generator := llm.NewClient(cfg.LLM)

	h := handlers.NewHandler(
		services.NewAccountService(repos.users, tokens, events),
		services.NewGoalService(repos.users, repos.goals, generator, events),
		services.NewChatService(repos.users, repos.chats, generator, events),
		services.NewSnapshotService(repos.users, repos.snapshots),
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CorsMiddleware(cfg.CORSOrigins))
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"}) // Only trust local proxies

	api := router.Group("/api")
	api.GET("/healthz", handlers.HandleHealth)
	gate := middleware.AuthMiddleware(tokens)
	h.RegisterRoutes(api, gate)
	api.GET("/events", middleware.TokenFromQuery(), gate, handlers.HandleEventStream(broker, streamKeepAlive))

	internal := api.Group("/internal", middleware.MicroserviceAuthMiddleware(cfg.InternalAPIKey))
	if pool != nil {
		internal.GET("/metrics", gin.WrapF(pool.MetricsHandler))
	} else {
		internal.GET("/metrics", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"events_enabled": false})
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Get().Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Get().Info("Shutting down server")

	broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error("Server shutdown failed", zap.Error(err))
	}
}
