package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvInstanceID, "  sweeper-2 ")
	require.Equal(t, "sweeper-2", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(EnvInstanceID, "")
	require.NotEmpty(t, GetID())
}
