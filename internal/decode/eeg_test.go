package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildEegPacket constructs a synthetic packet per S1: anchor t0, N
// triplets where sample i has (ch1=1000*i, ch2=2000*i) in 24-bit counts.
func buildEegPacket(t0Ticks uint32, n int) []byte {
	buf := make([]byte, 4+n*eegBytesPerEntry)
	binary.LittleEndian.PutUint32(buf[:4], t0Ticks)
	for i := 0; i < n; i++ {
		off := 4 + i*eegBytesPerEntry
		buf[off] = 0 // status: no leadoff
		putInt24BE(buf[off+1:off+4], int32(1000*i))
		putInt24BE(buf[off+4:off+7], int32(2000*i))
	}
	return buf
}

func putInt24BE(b []byte, v int32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// S1 (EEG decode): anchor t0=100.000, nominal 250 Hz, 25 triplets.
func TestEegDecodeS1(t *testing.T) {
	var dec EegDecoder
	packet := buildEegPacket(100000, 25) // t0 ticks / 1000 = 100.000s

	samples, err := dec.Decode(packet)
	require.NoError(t, err)
	require.Len(t, samples, 25)

	for i, s := range samples {
		wantT := 100.0 + float64(i)/250.0
		require.InDelta(t, wantT, s.TDevice, 1e-9)

		wantCh1 := float64(1000*i) * EegVRef / (EegGain * eegFullScale) * 1e6
		wantCh2 := float64(2000*i) * EegVRef / (EegGain * eegFullScale) * 1e6
		require.InDelta(t, wantCh1, s.Ch1uV, 1e-6)
		require.InDelta(t, wantCh2, s.Ch2uV, 1e-6)
		require.False(t, s.LeadoffCh1)
		require.False(t, s.LeadoffCh2)
	}
}

func TestEegDecodeShortPacket(t *testing.T) {
	var dec EegDecoder
	_, err := dec.Decode([]byte{1, 2, 3})
	require.Error(t, err)
	require.Equal(t, uint64(1), dec.Counters.ShortPackets)
}

func TestEegDecodeUnexpectedLength(t *testing.T) {
	var dec EegDecoder
	raw := make([]byte, 4+eegBytesPerEntry+1)
	_, err := dec.Decode(raw)
	require.Error(t, err)
	require.Equal(t, uint64(1), dec.Counters.BadLength)
}

func TestEegDecodeLeadoffBits(t *testing.T) {
	var dec EegDecoder
	packet := buildEegPacket(0, 1)
	packet[4] = eegLeadoffCh1Bit | eegLeadoffCh2Bit

	samples, err := dec.Decode(packet)
	require.NoError(t, err)
	require.True(t, samples[0].LeadoffCh1)
	require.True(t, samples[0].LeadoffCh2)
}

func TestEegDecodeReorderDropped(t *testing.T) {
	var dec EegDecoder
	_, err := dec.Decode(buildEegPacket(100000, 10)) // anchor 100.0s
	require.NoError(t, err)

	_, err = dec.Decode(buildEegPacket(50000, 10)) // anchor 50.0s, big regression
	require.Error(t, err)
	require.Equal(t, uint64(1), dec.Counters.ReorderDrops)
}
