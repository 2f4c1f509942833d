package statsprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/ratelimiting"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const userAgent = "ringside/1.0 (+https://github.com/Amund211/ringside)"

const getStatsMinOperationTime = 150 * time.Millisecond

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type RequestBudget interface {
	Do(ctx context.Context, expectedOperationTime time.Duration, operation func()) bool
}

type cultivationAPIMetricsCollection struct {
	requestCount metric.Int64Counter
}

func setupCultivationAPIMetrics(meter metric.Meter) (cultivationAPIMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("statsprovider/cultivation/request_count")
	if err != nil {
		return cultivationAPIMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	return cultivationAPIMetricsCollection{
		requestCount: requestCount,
	}, nil
}

type Cultivation struct {
	httpClient HttpClient
	budget     RequestBudget
	baseURL    string
	apiKey     string

	metrics cultivationAPIMetricsCollection
	tracer  trace.Tracer
}

func NewCultivation(
	httpClient HttpClient,
	baseURL string,
	apiKey string,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) (*Cultivation, error) {
	const name = "ringside/statsprovider/cultivation"

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupCultivationAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	// Request volume agreed with the cultivation team
	budget := ratelimiting.NewSlidingWindowBudget(300, time.Minute, nowFunc, afterFunc)

	return &Cultivation{
		httpClient: httpClient,
		budget:     budget,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,

		metrics: metrics,
		tracer:  tracer,
	}, nil
}

type combatStatsResponse struct {
	Attack         int     `json:"attack"`
	Defense        int     `json:"defense"`
	MaxHP          int     `json:"maxHp"`
	MaxResource    int     `json:"maxResource"`
	Speed          int     `json:"speed"`
	CritChance     float64 `json:"critChance"`
	CritMultiplier float64 `json:"critMultiplier"`
	Accuracy       float64 `json:"accuracy"`
	DodgeChance    float64 `json:"dodgeChance"`
	Penetration    float64 `json:"penetration"`
	Resistance     float64 `json:"resistance"`
	Lifesteal      float64 `json:"lifesteal"`
	Regen          float64 `json:"regen"`
	Luck           float64 `json:"luck"`
	Realm          string  `json:"realm"`
	PowerLevel     int     `json:"powerLevel"`
}

func validateStats(stats domain.CombatStats) error {
	if stats.Attack <= 0 {
		return fmt.Errorf("attack must be positive, got %d", stats.Attack)
	}
	if stats.MaxHP <= 0 {
		return fmt.Errorf("max hp must be positive, got %d", stats.MaxHP)
	}
	if stats.Defense < 0 || stats.MaxResource < 0 || stats.Speed < 0 {
		return fmt.Errorf("negative stat: defense=%d maxResource=%d speed=%d", stats.Defense, stats.MaxResource, stats.Speed)
	}

	for name, value := range map[string]float64{
		"critChance":  stats.CritChance,
		"accuracy":    stats.Accuracy,
		"dodgeChance": stats.DodgeChance,
		"penetration": stats.Penetration,
		"lifesteal":   stats.Lifesteal,
		"regen":       stats.Regen,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s outside [0, 1]: %f", name, value)
		}
	}
	if stats.CritMultiplier < 1 {
		return fmt.Errorf("crit multiplier below 1: %f", stats.CritMultiplier)
	}
	if stats.Resistance < 0 || stats.Luck < 0 {
		return fmt.Errorf("negative stat: resistance=%f luck=%f", stats.Resistance, stats.Luck)
	}

	return nil
}

func parseCombatStatsResponse(data []byte) (domain.CombatStats, error) {
	var response combatStatsResponse
	err := json.Unmarshal(data, &response)
	if err != nil {
		return domain.CombatStats{}, fmt.Errorf("failed to unmarshal combat stats: %w", err)
	}

	stats := domain.CombatStats{
		Attack:         response.Attack,
		Defense:        response.Defense,
		MaxHP:          response.MaxHP,
		MaxResource:    response.MaxResource,
		Speed:          response.Speed,
		CritChance:     response.CritChance,
		CritMultiplier: response.CritMultiplier,
		Accuracy:       response.Accuracy,
		DodgeChance:    response.DodgeChance,
		Penetration:    response.Penetration,
		Resistance:     response.Resistance,
		Lifesteal:      response.Lifesteal,
		Regen:          response.Regen,
		Luck:           response.Luck,
		Realm:          response.Realm,
		PowerLevel:     response.PowerLevel,
	}

	err = validateStats(stats)
	if err != nil {
		return domain.CombatStats{}, fmt.Errorf("invalid combat stats: %w", err)
	}

	return stats, nil
}

func (c *Cultivation) GetCombatStats(ctx context.Context, uuid string) (domain.CombatStats, error) {
	ctx, span := c.tracer.Start(ctx, "Cultivation.GetCombatStats")
	defer span.End()

	if !strutils.UUIDIsNormalized(uuid) {
		err := fmt.Errorf("uuid is not normalized")
		reporting.Report(ctx, err, map[string]string{
			"uuid": uuid,
		})
		return domain.CombatStats{}, err
	}

	url := fmt.Sprintf("%s/v1/combatstats/%s", c.baseURL, uuid)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return domain.CombatStats{}, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("API-Key", c.apiKey)

	var resp *http.Response
	var doErr error
	start := time.Now()
	ran := c.budget.Do(ctx, getStatsMinOperationTime, func() {
		_, span := c.tracer.Start(ctx, "Cultivation.httpget")
		defer span.End()

		resp, doErr = c.httpClient.Do(req)
	})
	if !ran {
		err := fmt.Errorf("%w: request budget exhausted", domain.ErrTemporarilyUnavailable)
		reporting.Report(ctx, err, map[string]string{
			"uuid": uuid,
		})
		return domain.CombatStats{}, err
	}
	if doErr != nil {
		err := fmt.Errorf("%w: failed to send request: %w", domain.ErrTemporarilyUnavailable, doErr)
		reporting.Report(ctx, err, map[string]string{
			"uuid": uuid,
		})
		return domain.CombatStats{}, err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("%w: failed to read response body: %w", domain.ErrTemporarilyUnavailable, err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": uuid,
		})
		return domain.CombatStats{}, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "cultivation request completed", "status", resp.StatusCode, "duration", time.Since(start).String())
	c.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.Int("status_code", resp.StatusCode)))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return domain.CombatStats{}, domain.ErrStatsUnavailable
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		err := fmt.Errorf("%w: cultivation returned status %d", domain.ErrTemporarilyUnavailable, resp.StatusCode)
		reporting.Report(ctx, err, map[string]string{
			"uuid":       uuid,
			"statusCode": strconv.Itoa(resp.StatusCode),
		})
		return domain.CombatStats{}, err
	default:
		err := fmt.Errorf("cultivation returned status %d", resp.StatusCode)
		reporting.Report(ctx, err, map[string]string{
			"uuid":       uuid,
			"statusCode": strconv.Itoa(resp.StatusCode),
		})
		return domain.CombatStats{}, err
	}

	stats, err := parseCombatStatsResponse(data)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"uuid": uuid,
		})
		return domain.CombatStats{}, err
	}

	return stats, nil
}
