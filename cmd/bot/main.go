package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"imagegen-bot/internal/bot"
	"imagegen-bot/internal/config"
	"imagegen-bot/internal/database"
	"imagegen-bot/internal/gemini"
	"imagegen-bot/internal/handler"
	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/logger"
	"imagegen-bot/internal/messaging"
	"imagegen-bot/internal/middleware"
	"imagegen-bot/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- 1. Конфигурация ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- 2. Логгер ---
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Starting AI Image Generator Bot...",
		zap.String("env", cfg.AppEnv),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()

	// --- 3. Хранилище ---
	var store interfaces.GenerationStore
	var pool *pgxpool.Pool
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err = database.InitDB(ctx, cfg.Storage.DatabaseURL, cfg.Storage.MaxConns, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize database", zap.Error(err))
		}
		store = database.NewPgGenerationRepository(pool, appLogger)
	default:
		store = storage.NewMemStorage(appLogger)
	}

	// --- 4. RabbitMQ (опционально) ---
	var publisher interfaces.EventPublisher = messaging.NoopPublisher{}
	var mqConn *messaging.ConnectionManager
	if cfg.RabbitMQ.Enabled() {
		mqConn, err = messaging.NewConnectionManager(ctx, cfg.RabbitMQ.URL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		publisher, err = messaging.NewRabbitMQPublisher(mqConn, cfg.RabbitMQ.EventsQueue, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
		}
	} else {
		appLogger.Info("RABBITMQ_URL not set, generation events are disabled")
	}

	// --- 5. Gemini ---
	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}

	// --- 6. Telegram ---
	if err := tgbotapi.SetLogger(bot.NewBotLogger(cfg.Telegram.Token, appLogger)); err != nil {
		appLogger.Warn("Failed to set tgbotapi logger", zap.Error(err))
	}
	api, err := bot.NewBotAPI(cfg.Telegram.Token, cfg.Telegram.APIEndpoint, cfg.Telegram.Debug)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram bot", zap.Error(err))
	}
	appLogger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	messenger := bot.NewTelegramMessenger(api, appLogger)
	messages := bot.NewMessages(cfg.TeamAttribution)
	cleanup := bot.NewCleanupRegistry(cfg.CleanupDelay, appLogger)
	botHandler := bot.NewHandler(store, geminiClient, messenger, publisher, cleanup, messages, cfg.TempDir, appLogger)
	poller := bot.NewPoller(api, botHandler, messenger, messages, cfg.Telegram.PollTimeout, appLogger)

	// --- 7. HTTP сервер (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.AppEnv == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(appLogger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.CORSAllowedOrigins) == 0 || (len(cfg.HTTP.CORSAllowedOrigins) == 1 && cfg.HTTP.CORSAllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	statusHandler := handler.NewStatusHandler(store, messenger, handler.StatusConfig{
		TeamName:        cfg.TeamName,
		TeamAttribution: cfg.TeamAttribution,
		StaticDir:       cfg.HTTP.StaticDir,
	}, appLogger)
	statusHandler.RegisterRoutes(router)

	// Prometheus middleware и /metrics подключаются после регистрации роутов
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- 8. Long polling ---
	pollCtx, stopPolling := context.WithCancel(ctx)
	pollDone := make(chan struct{})
	go func() {
		poller.Run(pollCtx)
		close(pollDone)
	}()

	appLogger.Info("AI Image Generator Bot started successfully")

	// --- 9. Ожидание сигнала завершения ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Shutting down...", zap.String("signal", sig.String()))

	// --- 10. Graceful Shutdown ---
	// Порядок: polling -> обработчики -> временные файлы -> HTTP -> брокер и БД
	stopPolling()
	<-pollDone

	cleanup.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	if err := publisher.Close(); err != nil {
		appLogger.Error("Failed to close event publisher", zap.Error(err))
	}
	if mqConn != nil {
		if err := mqConn.Close(); err != nil {
			appLogger.Error("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}
	database.CloseDB(pool, appLogger)

	appLogger.Info("AI Image Generator Bot shut down gracefully")
}
