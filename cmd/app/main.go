package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/skyvia/flightcore/api"
	"github.com/skyvia/flightcore/config"
	"github.com/skyvia/flightcore/internal/bootstrap"
	"github.com/skyvia/flightcore/internal/cache"
	"github.com/skyvia/flightcore/internal/dispatch"
	"github.com/skyvia/flightcore/internal/fare"
	"github.com/skyvia/flightcore/internal/kafka"
	"github.com/skyvia/flightcore/internal/loyalty"
	"github.com/skyvia/flightcore/internal/repository"
	"github.com/skyvia/flightcore/internal/reservation"
	"github.com/skyvia/flightcore/internal/search"
	"github.com/skyvia/flightcore/internal/service/flights"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	store := cache.NewRedisStore(cfg.Redis, logger)
	defer store.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	airportRepo := repository.NewAirportRepository(pool)
	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	estimator := fare.NewEstimator()
	loyaltyClient := loyalty.NewHTTPClient(cfg.Loyalty, logger)

	engine := search.NewEngine(airportRepo, flightRepo, estimator, store, cfg.Search, cfg.Cache.SearchTTL(), logger)
	flightService := flights.NewFlightService(flightRepo, airportRepo, estimator, store, cfg.Cache.FlightTTL(), cfg.Cache.AirportsTTL())
	coordinator := reservation.NewCoordinator(flightRepo, bookingRepo, estimator, loyaltyClient, store, logger)
	dispatcher := dispatch.NewDispatcher(producer, cfg.Kafka.NotificationsTopic, cfg.Kafka.LoyaltyTopic, logger)

	api.RegisterValidators()
	router := api.NewRouter(cfg.HTTP,
		api.NewFlightHandler(flightService, engine),
		api.NewBookingHandler(coordinator, dispatcher),
		logger)

	if err := bootstrap.Run(ctx, cfg.HTTP, router, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
