package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)
	require.Equal(t, 18765, cfg.WSPort)
	require.Equal(t, "json_lines", cfg.DataFormat)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	os.Setenv("LINKBAND_WS_PORT", "9999")
	os.Setenv("LINKBAND_DATA_FORMAT", "csv")
	os.Setenv("LINKBAND_UNKNOWN_KEY", "ignored")
	defer func() {
		os.Unsetenv("LINKBAND_WS_PORT")
		os.Unsetenv("LINKBAND_DATA_FORMAT")
		os.Unsetenv("LINKBAND_UNKNOWN_KEY")
	}()

	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.WSPort)
	require.Equal(t, "csv", cfg.DataFormat)
}
