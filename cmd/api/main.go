package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tillpoint/pos-engine/api/routes"
	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/checkout"
	"github.com/tillpoint/pos-engine/internal/coupons"
	"github.com/tillpoint/pos-engine/internal/customers"
	"github.com/tillpoint/pos-engine/internal/holds"
	"github.com/tillpoint/pos-engine/internal/quotes"
	"github.com/tillpoint/pos-engine/internal/register"
	"github.com/tillpoint/pos-engine/internal/sales"
	"github.com/tillpoint/pos-engine/internal/taxrules"
	"github.com/tillpoint/pos-engine/pkg/backend"
	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/db"
	"github.com/tillpoint/pos-engine/pkg/logger"
	"github.com/tillpoint/pos-engine/pkg/metrics"
	"github.com/tillpoint/pos-engine/pkg/migrate"
	"github.com/tillpoint/pos-engine/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogClient, err := catalog.NewClient(cfg.Catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}
	customersClient, err := customers.NewClient(cfg.Customers)
	if err != nil {
		logg.Error(context.Background(), "failed to create customers client", err)
		os.Exit(1)
	}
	couponsClient, err := coupons.NewClient(cfg.Coupons)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons client", err)
		os.Exit(1)
	}
	taxClient, err := taxrules.NewClient(cfg.TaxRules)
	if err != nil {
		logg.Error(context.Background(), "failed to create tax rules client", err)
		os.Exit(1)
	}
	rateResolver, err := taxrules.NewResolver(taxClient, cfg.TaxRules.RefreshInterval)
	if err != nil {
		logg.Error(context.Background(), "failed to create tax rate resolver", err)
		os.Exit(1)
	}
	backendClient, err := backend.NewClient(cfg.Sales)
	if err != nil {
		logg.Error(context.Background(), "failed to create sale backend client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	cartCache, err := register.NewRedisCartCache(redisClient, cfg.Redis.CartTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart cache", err)
		os.Exit(1)
	}
	sessions := register.NewManager(cartCache, logg)

	registerService, err := register.NewService(catalogClient, couponsClient, rateResolver, cfg.App.Region)
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	holdsRepo, err := holds.NewRepository(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create holds repository", err)
		os.Exit(1)
	}
	holdsService := holds.NewService(context.Background(), holdsRepo, logg)

	quotesRepo, err := quotes.NewRepository(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes repository", err)
		os.Exit(1)
	}
	quotesService, err := quotes.NewService(quotesRepo, rateResolver, cfg.App.Region, cfg.Quotes.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes service", err)
		os.Exit(1)
	}

	salesRepo, err := sales.NewRepository(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales repository", err)
		os.Exit(1)
	}
	salesService, err := sales.NewService(backendClient, salesRepo, logg, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(salesService, rateResolver, cfg.App.Region, logg, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Sessions:  sessions,
			Register:  registerService,
			Holds:     holdsService,
			Quotes:    quotesService,
			Checkout:  checkoutService,
			Sales:     salesService,
			Catalog:   catalogClient,
			Customers: customersClient,
			Metrics:   registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
