package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/Amund211/ringside/internal/adapters/cache"
	"github.com/Amund211/ringside/internal/adapters/database"
	"github.com/Amund211/ringside/internal/adapters/ledgerrepository"
	"github.com/Amund211/ringside/internal/adapters/matchrepository"
	"github.com/Amund211/ringside/internal/adapters/seasonrepository"
	"github.com/Amund211/ringside/internal/adapters/statsprovider"
	"github.com/Amund211/ringside/internal/app"
	"github.com/Amund211/ringside/internal/config"
	"github.com/Amund211/ringside/internal/gameconfig"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/matchmaking"
	"github.com/Amund211/ringside/internal/ports"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/telemetry"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TODO: Put in config
const PROD_DOMAIN_SUFFIX = "tutien.gg"
const STAGING_DOMAIN_SUFFIX = "tutien-staging.pages.dev"

func main() {
	instanceID := uuid.New().String()

	baseHandler := slog.NewJSONHandler(os.Stdout, nil)
	var handler slog.Handler = baseHandler
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		handler = logging.NewGoogleCloudTracingLogHandler(baseHandler, project)
	}
	logger := slog.New(handler).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	// Local development reads env vars from a .env file; deployed instances
	// get them from the runtime
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env file")
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.SetupOTelSDK(ctx, "ringside")
	if err != nil {
		fail("Failed to initialize telemetry", "error", err.Error())
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("Failed to shut down telemetry", "error", err.Error())
		}
	}()

	gameConfig, err := gameconfig.Load()
	if err != nil {
		fail("Failed to load game config", "error", err.Error())
	}
	logger.Info("Loaded game config", "version", gameConfig.Version())

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	logger.Info("Initializing database connection")
	db, err := database.NewCloudsqlPostgresDatabase(config)
	if err != nil {
		fail("Failed to initialize database connection", "error", err.Error())
	}
	logger.Info("Initialized database connection")

	schemaName := database.GetSchemaName(!config.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
	if err != nil {
		fail("Failed to migrate database", "error", err.Error())
	}

	ledgerRepo := ledgerrepository.NewPostgres(db, schemaName, gameConfig.TierTable(), time.Now)
	matchRepo := matchrepository.NewPostgres(db, schemaName)
	seasonRepo := seasonrepository.NewPostgres(db, schemaName, time.Now)
	logger.Info("Initialized repositories")

	if err := seasonRepo.EnsureSeasonExists(ctx); err != nil {
		fail("Failed to bootstrap season calendar", "error", err.Error())
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	statsProvider, err := statsprovider.NewCultivationOrStub(config, httpClient, gameConfig.BaselineStats())
	if err != nil {
		fail("Failed to initialize stats provider", "error", err.Error())
	}
	logger.Info("Initialized stats provider")

	// Stats snapshots are immutable per match, but live stats change as
	// players progress; keep the TTL short
	statsCache := cache.NewTTLStatsCache(1 * time.Minute)
	seasonCache := cache.NewTTLSeasonCache(1 * time.Minute)

	matchmaker := matchmaking.NewMatchmaker(ledgerRepo, gameConfig)

	allowedOrigins, err := ports.NewDomainSuffixes(PROD_DOMAIN_SUFFIX, STAGING_DOMAIN_SUFFIX)
	if err != nil {
		fail("Failed to initialize allowed origins", "error", err.Error())
	}

	seedFunc := func() int64 {
		return rand.Int63()
	}

	playChallenge := app.BuildPlayChallenge(
		seasonRepo,
		ledgerRepo,
		matchRepo,
		statsProvider,
		statsCache,
		matchmaker,
		gameConfig,
		time.Now,
		seedFunc,
	)
	getRank := app.BuildGetRank(seasonRepo, ledgerRepo, gameConfig, time.Now)
	getCurrentSeason := app.BuildGetCurrentSeason(seasonRepo, seasonCache)
	claimSeasonReward := app.BuildClaimSeasonReward(seasonRepo, ledgerRepo, gameConfig)

	http.HandleFunc(
		"OPTIONS /v1/arena/challenge",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"POST /v1/arena/challenge",
		ports.MakeChallengeHandler(
			playChallenge,
			allowedOrigins,
			logger.With("port", "challenge"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /v1/arena/rank/{uuid}",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /v1/arena/rank/{uuid}",
		ports.MakeGetRankHandler(
			getRank,
			allowedOrigins,
			logger.With("port", "rank"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /v1/arena/season/current",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /v1/arena/season/current",
		ports.MakeGetCurrentSeasonHandler(
			getCurrentSeason,
			allowedOrigins,
			logger.With("port", "season"),
			sentryMiddleware,
			time.Now,
		),
	)

	http.HandleFunc(
		"OPTIONS /v1/arena/season/claim",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"POST /v1/arena/season/claim",
		ports.MakeClaimRewardHandler(
			claimSeasonReward,
			allowedOrigins,
			logger.With("port", "claim"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(
		fmt.Sprintf(":%s", config.Port()),
		otelhttp.NewHandler(http.DefaultServeMux, "ringside"),
	)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
