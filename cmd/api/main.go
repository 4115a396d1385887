package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"bookforge/internal/activation"
	"bookforge/internal/adapter/repo"
	"bookforge/internal/auth"
	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
	"bookforge/internal/http/handlers"
	httpapi "bookforge/internal/http/httpapi"
	"bookforge/internal/infra"
	"bookforge/internal/infra/geoip"
	"bookforge/internal/migrate"
	"bookforge/internal/quota"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Migrations run over database/sql before the pgx pool comes up.
	migrationDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open migration connection")
	}
	if err := migrate.Run(ctx, migrationDB, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	_ = migrationDB.Close()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	clock := domain.SystemClock{}
	profiles := repo.NewProfileRepository(dbpool)
	identities := repo.NewIdentityRepository(dbpool)
	planChanges := repo.NewPlanChangeRepository(dbpool)

	entitlements := entitlement.NewManager(profiles, planChanges, logger)
	meter := quota.NewMeter(profiles, clock, logger)
	reconciler := activation.NewReconciler(profiles, entitlements, nil, logger)
	authService := auth.NewService(identities, profiles, logger)

	app := &handlers.App{
		Config:       cfg,
		Logger:       logger,
		Store:        profiles,
		Auth:         authService,
		Meter:        meter,
		Entitlements: entitlements,
		Reconciler:   reconciler,
		Clock:        clock,
		SQL:          infra.NewSQLRunner(dbpool, logger),
		GeoIP:        resolver,
		Metrics:      handlers.NewMetrics(),
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
