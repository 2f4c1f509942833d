package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/reporting"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func errorResponseData(cause string) ([]byte, error) {
	return json.Marshal(errorResponse{Success: false, Cause: cause})
}

// writeArenaErrorResponse maps application errors onto stable status codes
// and a uniform error envelope. Unknown errors default to 500 with no detail
// leaked to the client.
func writeArenaErrorResponse(ctx context.Context, w http.ResponseWriter, responseError error) int {
	w.Header().Set("Content-Type", "application/json")

	statusCode := http.StatusInternalServerError
	cause := "Internal server error"

	switch {
	case errors.Is(responseError, domain.ErrLedgerNotFound):
		statusCode = http.StatusNotFound
		cause = "Rating ledger not found"
	case errors.Is(responseError, domain.ErrSeasonNotFound):
		statusCode = http.StatusNotFound
		cause = "Season not found"
	case errors.Is(responseError, domain.ErrMatchNotFound):
		statusCode = http.StatusNotFound
		cause = "Match not found"
	case errors.Is(responseError, domain.ErrStatsUnavailable):
		statusCode = http.StatusNotFound
		cause = "Combat stats not found"
	case errors.Is(responseError, domain.ErrMatchmakingExhausted):
		statusCode = http.StatusServiceUnavailable
		cause = "No opponent available"
	case errors.Is(responseError, domain.ErrTemporarilyUnavailable):
		statusCode = http.StatusServiceUnavailable
		cause = "Service temporarily unavailable"
	case errors.Is(responseError, domain.ErrConcurrencyConflict):
		statusCode = http.StatusConflict
		cause = "Ledger was updated concurrently, please retry"
	}

	errorData, err := errorResponseData(cause)
	if err != nil {
		logging.FromContext(ctx).Error("Failed to marshal error response", "error", err)
		reporting.Report(ctx, fmt.Errorf("failed to marshal error response: %w", err), map[string]string{
			"responseError": responseError.Error(),
		})
		w.WriteHeader(statusCode)
		w.Write([]byte(`{"success":false,"cause":"Internal server error"}`))
		return statusCode
	}

	w.WriteHeader(statusCode)
	w.Write(errorData)

	return statusCode
}
