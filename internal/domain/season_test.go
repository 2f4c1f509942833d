package domain_test

import (
	"testing"
	"time"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSeasonContains(t *testing.T) {
	season := domain.Season{
		Number:    1,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	require.True(t, season.Contains(season.StartDate))
	require.True(t, season.Contains(season.StartDate.Add(15*24*time.Hour)))
	require.False(t, season.Contains(season.EndDate))
	require.False(t, season.Contains(season.StartDate.Add(-time.Second)))
}

func TestSeasonDaysRemaining(t *testing.T) {
	season := domain.Season{
		Number:    1,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	require.Equal(t, 30, season.DaysRemaining(season.StartDate))
	require.Equal(t, 10, season.DaysRemaining(time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 0, season.DaysRemaining(season.EndDate.Add(time.Hour)))
}
