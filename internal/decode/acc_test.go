package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildAccPacket(t0Ticks uint32, n int) []byte {
	buf := make([]byte, 4+n*accBytesPerEntry)
	binary.LittleEndian.PutUint32(buf[:4], t0Ticks)
	for i := 0; i < n; i++ {
		off := 4 + i*accBytesPerEntry
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(int16(i)))
		binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(int16(-i)))
		binary.LittleEndian.PutUint16(buf[off+4:off+6], uint16(int16(2*i)))
	}
	return buf
}

func TestAccDecodeBasic(t *testing.T) {
	var dec AccDecoder
	samples, err := dec.Decode(buildAccPacket(0, 5))
	require.NoError(t, err)
	require.Len(t, samples, 5)

	for i, s := range samples {
		require.InDelta(t, float64(i)/30.0, s.TDevice, 1e-9)
		require.Equal(t, float64(i), s.X)
		require.Equal(t, float64(-i), s.Y)
		require.Equal(t, float64(2*i), s.Z)
	}
}
