package decode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatteryDecodeClamps(t *testing.T) {
	var dec BatteryDecoder
	now := time.Now()

	s, err := dec.Decode([]byte{150}, now)
	require.NoError(t, err)
	require.Equal(t, 100, s.LevelPercent)
	require.Equal(t, 0.0, s.TDevice)

	s2, err := dec.Decode([]byte{42}, now.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, 42, s2.LevelPercent)
	require.InDelta(t, 5.0, s2.TDevice, 1e-9)
}

func TestBatteryDecodeShortPacket(t *testing.T) {
	var dec BatteryDecoder
	_, err := dec.Decode(nil, time.Now())
	require.Error(t, err)
}
