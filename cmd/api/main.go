package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/maingberg-rgb/finansi/internal/bot"
	"github.com/maingberg-rgb/finansi/internal/bot/session"
	"github.com/maingberg-rgb/finansi/internal/bot/wizard"
	"github.com/maingberg-rgb/finansi/internal/config"
	"github.com/maingberg-rgb/finansi/internal/database"
	_ "github.com/maingberg-rgb/finansi/internal/docs" // Import swagger docs
	"github.com/maingberg-rgb/finansi/internal/events"
	"github.com/maingberg-rgb/finansi/internal/handlers"
	"github.com/maingberg-rgb/finansi/internal/logger"
	"github.com/maingberg-rgb/finansi/internal/middleware"
	"github.com/maingberg-rgb/finansi/internal/services"
	"github.com/maingberg-rgb/finansi/internal/validator"
)

// @title           Finansi API
// @version         1.0
// @description     Household budget tracker: categories, transactions with installments and fixed expenses.

// @host      localhost:3000
// @BasePath  /

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig(appConfig)
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	publisher, err := newPublisher(appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnf("event publisher close error: %v", err)
		}
	}()

	// Initialize services
	db := dbManager.DB()
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, publisher)
	fixedExpenseService := services.NewFixedExpenseService(db)

	// Initialize handlers
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	fixedExpenseHandler := handlers.NewFixedExpenseHandler(fixedExpenseService)

	if appConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(router, categoryHandler, transactionHandler, fixedExpenseHandler)
	router.NoRoute(middleware.NotFound())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	botDone := make(chan struct{})
	if appConfig.TelegramToken == "" {
		log.Info("TELEGRAM_BOT_TOKEN not set, skipping bot init")
		close(botDone)
	} else {
		machine := wizard.NewMachine(categoryService, transactionService, session.NewMemoryStore())
		telegram, err := bot.New(appConfig.TelegramToken, appConfig.TelegramDebug, machine)
		if err != nil {
			return err
		}
		go func() {
			defer close(botDone)
			if err := telegram.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("telegram bot stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting finansi server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-botDone
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http server shutdown error: %v", err)
	}
	<-botDone
	return nil
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event broker: %w", err)
	}
	logger.Get().Infow("Publishing ledger events", "exchange", cfg.AMQPExchange)
	return publisher, nil
}
