package statsprovider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Amund211/ringside/internal/config"
	"github.com/Amund211/ringside/internal/domain"
)

// StubStatsProvider serves the same stats for every player. Used in
// development when no cultivation service is available.
type StubStatsProvider struct {
	stats domain.CombatStats
}

func NewStubStatsProvider(stats domain.CombatStats) *StubStatsProvider {
	return &StubStatsProvider{stats: stats}
}

func (s *StubStatsProvider) GetCombatStats(ctx context.Context, uuid string) (domain.CombatStats, error) {
	return s.stats, nil
}

func NewCultivationOrStub(conf config.Config, httpClient *http.Client, fallbackStats domain.CombatStats) (StatsProvider, error) {
	if conf.CultivationAPIURL() != "" && conf.CultivationAPIKey() != "" {
		return NewCultivation(httpClient, conf.CultivationAPIURL(), conf.CultivationAPIKey(), time.Now, time.After)
	}

	if conf.IsDevelopment() {
		return NewStubStatsProvider(fallbackStats), nil
	}

	return nil, fmt.Errorf("Missing cultivation API configuration in non-development environment")
}
