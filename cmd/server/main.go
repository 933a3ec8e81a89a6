// Package main is the entry point for the nestegg price and history service.
// It resolves current prices for everything the portfolio holds, keeps the
// holdings store fresh on a schedule, and maintains the tiered net-worth
// snapshot logs that back the dashboard charts.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ewanhart/nestegg/internal/clientdata"
	"github.com/ewanhart/nestegg/internal/clients/coingecko"
	"github.com/ewanhart/nestegg/internal/clients/exchangerate"
	"github.com/ewanhart/nestegg/internal/clients/fundweb"
	"github.com/ewanhart/nestegg/internal/clients/yahoo"
	"github.com/ewanhart/nestegg/internal/config"
	"github.com/ewanhart/nestegg/internal/database"
	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/ewanhart/nestegg/internal/modules/history"
	historyhandlers "github.com/ewanhart/nestegg/internal/modules/history/handlers"
	"github.com/ewanhart/nestegg/internal/modules/holdings"
	"github.com/ewanhart/nestegg/internal/modules/networth"
	"github.com/ewanhart/nestegg/internal/modules/pricing"
	pricinghandlers "github.com/ewanhart/nestegg/internal/modules/pricing/handlers"
	"github.com/ewanhart/nestegg/internal/scheduler"
	"github.com/ewanhart/nestegg/internal/server"
	"github.com/ewanhart/nestegg/internal/services"
	"github.com/ewanhart/nestegg/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting nestegg")

	loc, err := time.LoadLocation(cfg.ReportingTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.ReportingTimezone).Msg("Invalid reporting timezone")
	}

	portfolioDB := mustOpen(log, cfg.DataDir, "portfolio", database.ProfileStandard)
	defer portfolioDB.Close()
	historyDB := mustOpen(log, cfg.DataDir, "history", database.ProfileStandard)
	defer historyDB.Close()
	cacheDB := mustOpen(log, cfg.DataDir, "cache", database.ProfileCache)
	defer cacheDB.Close()

	// Client layer: persistent response cache plus the external sources.
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	fxClient := exchangerate.NewClient(cacheRepo, log)
	currencyService := services.NewCurrencyService(fxClient, log)
	coingeckoClient := coingecko.NewClient(cacheRepo, domain.ReportingCurrency, log)
	yahooClient := yahoo.NewClient(log)
	fundwebClient := fundweb.NewClient(log)

	fundFallback, err := fundweb.NewFallbackAdapter(cfg.FundFallbackPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fund fallback table")
	}

	// Routing: one ordered chain per asset class. Crypto and non-crypto
	// chains never share a source.
	router := pricing.NewRouter(log)
	yahooAdapter := pricing.NewYahooAdapter(yahooClient, currencyService)
	mustRegister(log, router, domain.AssetCrypto,
		pricing.NewCoinGeckoAdapter(coingeckoClient),
		pricing.NewYahooCryptoAdapter(yahooClient))
	for _, class := range []domain.AssetClass{
		domain.AssetISINUKFund, domain.AssetSEDOLUKFund, domain.AssetUKFundFallback,
	} {
		mustRegister(log, router, class, fundwebClient, fundFallback)
	}
	for _, class := range []domain.AssetClass{
		domain.AssetEquityTicker, domain.AssetISINUS, domain.AssetISINIntl, domain.AssetUKEquity,
	} {
		mustRegister(log, router, class, yahooAdapter)
	}

	// Module layer.
	holdingsRepo := holdings.NewRepository(portfolioDB.Conn(), log)
	networthService := networth.NewService(holdingsRepo, log)
	historyRepo := history.NewRepository(historyDB.Conn(), log)
	recorder := history.NewRecorder(historyRepo, networthService, loc, log)
	compactor := history.NewCompactor(historyRepo, cacheRepo, log)
	updater := pricing.NewUpdater(holdingsRepo, coingeckoClient, yahooClient, router, currencyService, log)

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Databases: []*database.DB{portfolioDB, historyDB, cacheDB},
		Pricing:   pricinghandlers.NewHandler(router, updater, holdingsRepo, log),
		Snapshots: historyhandlers.NewHandler(historyRepo, recorder, compactor, log),
	})

	sched := scheduler.New(log)
	tick := scheduler.NewTickJob(recorder, updater, time.Duration(cfg.RefreshMinutes)*time.Minute, log)
	if err := sched.AddJob("0 * * * * *", tick); err != nil {
		log.Fatal().Err(err).Msg("Failed to register tick job")
	}
	maintenance := scheduler.NewMaintenanceJob(compactor, historyRepo, fxClient, services.FallbackCurrencies(), log)
	if err := sched.AddJob("0 30 0 * * *", maintenance); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stopped")
}

// mustOpen opens and migrates one database or exits.
func mustOpen(log zerolog.Logger, dataDir, name string, profile database.DatabaseProfile) *database.DB {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to migrate database")
	}
	return db
}

// mustRegister adds a chain to the router or exits. Registration only fails
// on a crypto/non-crypto mismatch, which is a wiring bug.
func mustRegister(log zerolog.Logger, router *pricing.Router, class domain.AssetClass, adapters ...pricing.Adapter) {
	if err := router.Register(class, adapters...); err != nil {
		log.Fatal().Err(err).Str("class", string(class)).Msg("Failed to register price chain")
	}
}
