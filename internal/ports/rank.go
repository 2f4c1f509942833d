package ports

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Amund211/ringside/internal/app"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/ratelimiting"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
)

func MakeGetRankHandler(
	getRank app.GetRank,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
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
		rawUUID := r.PathValue("uuid")

		ctx = logging.AddMetaToContext(ctx, slog.String("uuid", rawUUID))
		logger := logging.FromContext(ctx)

		uuid, err := strutils.NormalizeUUID(rawUUID)
		if err != nil {
			statusCode := http.StatusBadRequest
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusCode)
			errorData, marshalErr := errorResponseData("Invalid UUID")
			if marshalErr != nil {
				w.Write([]byte(`{"success":false,"cause":"Invalid UUID"}`))
			} else {
				w.Write(errorData)
			}
			logger.Info("Returning response", "statusCode", statusCode, "reason", "invalid uuid")
			return
		}

		ctx = reporting.AddExtrasToContext(ctx, map[string]string{"uuid": uuid})

		ledger, err := getRank(ctx, uuid)
		if err != nil {
			// NOTE: GetRank implementations handle their own error reporting
			logger.Error("Error getting rank", "error", err)
			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		responseData, err := LedgerToRankResponseData(ledger)
		if err != nil {
			logger.Error("Failed to marshal rank response", "error", err)

			err = fmt.Errorf("failed to marshal rank response: %w", err)
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
