package ports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Amund211/ringside/internal/app"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/ratelimiting"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
)

func MakeGetCurrentSeasonHandler(
	getCurrentSeason app.GetCurrentSeason,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	nowFunc func() time.Time,
) http.HandlerFunc {
	ipRateLimiter, _ := ratelimiting.NewIPRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(120),
	)

	middleware := ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		buildMetricsMiddleware(),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		season, err := getCurrentSeason(ctx)
		if err != nil {
			// NOTE: GetCurrentSeason implementations handle their own error reporting
			logger.Error("Error getting current season", "error", err)
			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		responseData, err := SeasonToResponseData(season, nowFunc())
		if err != nil {
			logger.Error("Failed to marshal season response", "error", err)

			err = fmt.Errorf("failed to marshal season response: %w", err)
			reporting.Report(ctx, err)

			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		statusCode := 200
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(responseData)
	}

	return middleware(handler)
}

func MakeClaimRewardHandler(
	claimSeasonReward app.ClaimSeasonReward,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipRateLimiter, _ := ratelimiting.NewIPRateLimiter(
		ratelimiting.RefillPerSecond(2),
		ratelimiting.BurstSize(30),
	)
	// NOTE: Rate limiting based on user controlled value
	userIDRateLimiter, _ := ratelimiting.NewUserRateLimiter(
		ratelimiting.RefillPerSecond(1),
		ratelimiting.BurstSize(10),
	)

	middleware := ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		buildMetricsMiddleware(),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
		NewRateLimitMiddleware(userIDRateLimiter, makeOnLimitExceeded(userIDRateLimiter)),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rawUserID := r.Header.Get("X-User-Id")
		ctx = reporting.SetUserIDInContext(ctx, rawUserID)
		logger := logging.FromContext(ctx)

		if rawUserID == "" {
			statusCode := http.StatusUnauthorized
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusCode)
			errorData, err := errorResponseData("Missing X-User-Id header")
			if err != nil {
				w.Write([]byte(`{"success":false,"cause":"Missing X-User-Id header"}`))
			} else {
				w.Write(errorData)
			}
			logger.Info("Returning response", "statusCode", statusCode, "reason", "missing user id")
			return
		}

		userID, err := strutils.NormalizeUUID(rawUserID)
		if err != nil {
			statusCode := http.StatusBadRequest
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusCode)
			errorData, marshalErr := errorResponseData("Invalid user id")
			if marshalErr != nil {
				w.Write([]byte(`{"success":false,"cause":"Invalid user id"}`))
			} else {
				w.Write(errorData)
			}
			logger.Info("Returning response", "statusCode", statusCode, "reason", "invalid user id")
			return
		}

		ctx = logging.AddMetaToContext(ctx,
			slog.String("userId", userID),
		)
		logger = logging.FromContext(ctx)

		// Claims always target the current season, so no body is needed
		result, err := claimSeasonReward(ctx, userID)
		if err != nil {
			// NOTE: ClaimSeasonReward implementations handle their own error reporting
			logger.Error("Error claiming season reward", "error", err)
			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		responseData, err := ClaimResultToResponseData(result)
		if err != nil {
			logger.Error("Failed to marshal claim response", "error", err)

			err = fmt.Errorf("failed to marshal claim response: %w", err)
			reporting.Report(ctx, err)

			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		statusCode := 200
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success", "alreadyClaimed", result.AlreadyClaimed)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(responseData)
	}

	return middleware(handler)
}
