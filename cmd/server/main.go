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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greenbasket/groupbuy-service/config"
	"github.com/greenbasket/groupbuy-service/internal/auth"
	cataloghandler "github.com/greenbasket/groupbuy-service/internal/catalog/handler"
	catalogrepo "github.com/greenbasket/groupbuy-service/internal/catalog/repository"
	catalogusecase "github.com/greenbasket/groupbuy-service/internal/catalog/usecase"
	"github.com/greenbasket/groupbuy-service/internal/events"
	"github.com/greenbasket/groupbuy-service/internal/logger"
	loyaltyhandler "github.com/greenbasket/groupbuy-service/internal/loyalty/handler"
	loyaltyrepo "github.com/greenbasket/groupbuy-service/internal/loyalty/repository"
	loyaltyusecase "github.com/greenbasket/groupbuy-service/internal/loyalty/usecase"
	orderhandler "github.com/greenbasket/groupbuy-service/internal/order/handler"
	orderrepo "github.com/greenbasket/groupbuy-service/internal/order/repository"
	orderusecase "github.com/greenbasket/groupbuy-service/internal/order/usecase"
	"github.com/greenbasket/groupbuy-service/internal/stock"
	"github.com/greenbasket/groupbuy-service/internal/txn"
	waitlisthandler "github.com/greenbasket/groupbuy-service/internal/waitlist/handler"
	waitlistrepo "github.com/greenbasket/groupbuy-service/internal/waitlist/repository"
	waitlistusecase "github.com/greenbasket/groupbuy-service/internal/waitlist/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, reading environment directly")
	}
	cfg := config.LoadEnv()

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		fmt.Printf("failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := connectPostgres(&cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer db.Close()
	log.Info("connected to postgres", zap.String("host", cfg.Postgres.Host))

	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer cache.Close()

	publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	defer publisher.Close()

	txm := txn.NewManager(db, txn.PGConflictPolicy{}, 0, log)

	stockRepo := stock.NewPGRepository(db)
	catalogRepo := catalogrepo.NewPGRepository(db, txm)
	loyaltyRepo := loyaltyrepo.NewPGRepository(db, txm)
	orderRepo := orderrepo.NewPGRepository(db, txm)
	waitlistRepo := waitlistrepo.NewPGRepository(db, txm)

	catalogUC := catalogusecase.NewCatalogUseCase(catalogRepo, stockRepo, cache, log)
	loyaltyUC := loyaltyusecase.NewLoyaltyUseCase(loyaltyRepo, log)
	orderUC := orderusecase.NewOrderUseCase(orderRepo, catalogRepo, loyaltyRepo, stockRepo, catalogUC, publisher, log)
	waitlistUC := waitlistusecase.NewWaitlistUseCase(waitlistRepo, catalogRepo, loyaltyRepo, catalogUC, publisher, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cataloghandler.NewCatalogHandler(catalogUC, log).Register(r)
	orderhandler.NewOrderHandler(orderUC, log).Register(r)
	waitlisthandler.NewWaitlistHandler(waitlistUC, log).Register(r)
	loyaltyhandler.NewLoyaltyHandler(loyaltyUC, log).Register(r)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPPort,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func connectPostgres(cfg *config.PostgresConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	return db, nil
}
