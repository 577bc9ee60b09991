package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/readypay/backend/internal/audit"
	"github.com/readypay/backend/internal/auth"
	"github.com/readypay/backend/internal/config"
	"github.com/readypay/backend/internal/database"
	"github.com/readypay/backend/internal/events"
	"github.com/readypay/backend/internal/handlers"
	"github.com/readypay/backend/internal/services"
	"github.com/readypay/backend/internal/store"
	"github.com/readypay/backend/internal/store/memory"
	"github.com/readypay/backend/internal/store/postgres"
)

// @title ReadyPay Mobile Financial Service API
// @version 1.0
// @description Registration, PIN login, account activation and peer-to-peer transfers
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	accountStore, db := openStore(cfg)
	if db != nil {
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient = database.InitRedis(cfg.Redis)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	defer publisher.Close()

	pins, err := auth.NewPINHasher(cfg.PIN)
	if err != nil {
		log.Fatalf("Failed to initialize PIN hasher: %v", err)
	}

	var revoked auth.RevocationList
	limiter := services.NoopLoginLimiter()
	if redisClient != nil {
		revoked = auth.NewRedisRevocationList(redisClient)
		limiter = services.NewRedisLoginLimiter(redisClient, cfg.Login.MaxAttempts, cfg.Login.AttemptWindow)
	}
	sessions := auth.NewSessionIssuer(cfg.JWT.Secret, cfg.JWT.Expiry, revoked)

	accountService := services.NewAccountService(accountStore, pins, sessions, cfg.Rules,
		services.WithLoginLimiter(limiter),
		services.WithPublisher(publisher),
		services.WithAuditLogger(audit.NewLogger()),
	)
	qrService := services.NewQRService(accountStore)

	router := handlers.NewRouter(
		handlers.NewAccountHandler(accountService, sessions),
		handlers.NewQRHandler(qrService),
		sessions,
		cfg.Server,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (store=%s)", cfg.Server.Port, cfg.Server.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

func openStore(cfg *config.Config) (store.AccountStore, *sql.DB) {
	switch cfg.Server.StoreDriver {
	case "memory":
		log.Println("Using in-memory account store; data is lost on restart")
		return memory.NewAccountStore(), nil
	case "", "postgres":
		db, err := database.InitDB(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		return postgres.NewAccountStore(db), db
	default:
		log.Fatalf("Unknown STORE_DRIVER %q (want postgres or memory)", cfg.Server.StoreDriver)
		return nil, nil
	}
}
