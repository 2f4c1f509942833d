package domaintest

import (
	"testing"

	"github.com/Amund211/ringside/internal/strutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func NewUUID(t *testing.T) string {
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id.String()
}

func NewNormalizedUUID(t *testing.T) string {
	normalized, err := strutils.NormalizeUUID(NewUUID(t))
	require.NoError(t, err)
	return normalized
}
