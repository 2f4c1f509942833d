package ports

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Amund211/ringside/internal/app"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/ratelimiting"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
)

func makeOnLimitExceeded(rateLimiter ratelimiting.RequestRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		statusCode := http.StatusTooManyRequests

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		errorData, err := errorResponseData("Rate limit exceeded")
		if err != nil {
			w.Write([]byte(`{"success":false,"cause":"Rate limit exceeded"}`))
		} else {
			w.Write(errorData)
		}

		logger.Info("Returning response", "statusCode", statusCode, "reason", "ratelimit exceeded", "key", rateLimiter.KeyFor(r))
	}
}

func MakeChallengeHandler(
	playChallenge app.PlayChallenge,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipRateLimiter, _ := ratelimiting.NewIPRateLimiter(
		ratelimiting.RefillPerSecond(2),
		ratelimiting.BurstSize(30),
	)
	// Combat resolution is the most expensive operation we expose, so each
	// player also gets their own budget
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

		// The body is optional; an empty body plays with the defaults
		request := struct {
			AcceptBot *bool `json:"acceptBot"`
		}{}
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			statusCode := writeArenaErrorResponse(ctx, w, fmt.Errorf("failed to read request body: %w", err))
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &request); err != nil {
				statusCode := http.StatusBadRequest
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(statusCode)
				errorData, marshalErr := errorResponseData("Failed to parse request body")
				if marshalErr != nil {
					w.Write([]byte(`{"success":false,"cause":"Failed to parse request body"}`))
				} else {
					w.Write(errorData)
				}
				logger.Info("Returning response", "statusCode", statusCode, "reason", "invalid body")
				return
			}
		}
		acceptBot := true
		if request.AcceptBot != nil {
			acceptBot = *request.AcceptBot
		}

		ctx = logging.AddMetaToContext(ctx,
			slog.String("userId", userID),
			slog.Bool("acceptBot", acceptBot),
		)
		logger = logging.FromContext(ctx)

		result, err := playChallenge(ctx, userID, acceptBot)
		if err != nil {
			// NOTE: PlayChallenge implementations handle their own error reporting
			logger.Error("Error playing challenge", "error", err)
			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		responseData, err := ChallengeResultToResponseData(result)
		if err != nil {
			logger.Error("Failed to marshal challenge response", "error", err)

			err = fmt.Errorf("failed to marshal challenge response: %w", err)
			reporting.Report(ctx, err)

			statusCode := writeArenaErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		statusCode := 200
		logger.Info("Resolved challenge",
			"matchId", result.Match.MatchID,
			"winner", result.Match.Winner,
			"turnCount", result.Match.TurnCount,
			"opponentIsBot", result.Opponent.IsBot,
		)
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(responseData)
	}

	return middleware(handler)
}
