package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildPpgPacket(t0Ticks uint32, n int) []byte {
	buf := make([]byte, 4+n*ppgBytesPerEntry)
	binary.LittleEndian.PutUint32(buf[:4], t0Ticks)
	for i := 0; i < n; i++ {
		off := 4 + i*ppgBytesPerEntry
		putUint24BE(buf[off:off+3], uint32(100*i))
		putUint24BE(buf[off+3:off+6], uint32(200*i))
	}
	return buf
}

func putUint24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func TestPpgDecodeBasic(t *testing.T) {
	var dec PpgDecoder
	samples, err := dec.Decode(buildPpgPacket(1000, 10)) // 1.0s anchor
	require.NoError(t, err)
	require.Len(t, samples, 10)

	for i, s := range samples {
		require.InDelta(t, 1.0+float64(i)/50.0, s.TDevice, 1e-9)
		require.Equal(t, float64(100*i), s.Red)
		require.Equal(t, float64(200*i), s.Ir)
	}
}

func TestPpgDecodeShortPacket(t *testing.T) {
	var dec PpgDecoder
	_, err := dec.Decode([]byte{1, 2})
	require.Error(t, err)
}
