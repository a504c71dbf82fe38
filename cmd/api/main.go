package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/HaDo2003/DTechAPI-sub002/api/routes"
	"github.com/HaDo2003/DTechAPI-sub002/internal/cart"
	checkoutsvc "github.com/HaDo2003/DTechAPI-sub002/internal/checkout"
	couponsvc "github.com/HaDo2003/DTechAPI-sub002/internal/coupon"
	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/internal/payment"
	"github.com/HaDo2003/DTechAPI-sub002/internal/products"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/metrics"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/migrate"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	productsRepo := products.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), productsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	couponService, err := couponsvc.NewService(couponsvc.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateway, err := payment.NewGateway(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway adapter", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartService,
		couponService,
		ordersRepo,
		outboxSvc,
		gateway,
		cfg.Checkout,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentService, err := payment.NewService(
		dbClient,
		gateway,
		payment.NewRepository(gormDB),
		ordersRepo,
		outboxSvc,
		cfg.Gateway,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cartService,
			couponService,
			checkoutService,
			ordersService,
			paymentService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
