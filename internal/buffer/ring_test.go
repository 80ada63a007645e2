package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/looxidlabs/link-band-core/internal/model"
)

func eeg(t float64) model.Sample {
	return model.EegSample{TDevice: t}
}

func TestCapacityRounding(t *testing.T) {
	require.Equal(t, 2500, Capacity(250, 10))
	require.Equal(t, 500, Capacity(50, 10))
	require.Equal(t, 300, Capacity(30, 10))
	require.Equal(t, 60, Capacity(1, 60))
}

// S2: push 2600 EEG samples into a 2500-capacity buffer; ring contains
// the last 2500; overrun counter = 100; head t_device equals sample 100.
func TestOverrunEvictsOldest(t *testing.T) {
	r := NewRing(2500)
	for i := 0; i < 2600; i++ {
		r.Push(eeg(float64(i) * 0.004))
	}

	require.Equal(t, 2500, r.Len())
	require.Equal(t, uint64(100), r.Overruns())

	window := r.Window(2500)
	require.Len(t, window, 2500)
	require.InDelta(t, 100*0.004, window[0].DeviceTime(), 1e-9)
	require.InDelta(t, 2599*0.004, window[len(window)-1].DeviceTime(), 1e-9)
}

func TestOutOfOrderSampleDropped(t *testing.T) {
	r := NewRing(10)
	r.Push(eeg(1.0), eeg(1.1))
	r.Push(eeg(0.5)) // regression, must be dropped
	r.Push(eeg(1.2))

	require.Equal(t, 3, r.Len())
	require.Equal(t, uint64(1), r.Reorders())

	window := r.Window(3)
	require.InDelta(t, 1.0, window[0].DeviceTime(), 1e-9)
	require.InDelta(t, 1.1, window[1].DeviceTime(), 1e-9)
	require.InDelta(t, 1.2, window[2].DeviceTime(), 1e-9)
}

func TestWindowReturnsFewerThanCapacityWhenUnderfilled(t *testing.T) {
	r := NewRing(100)
	r.Push(eeg(0), eeg(0.004))
	require.Len(t, r.Window(50), 2)
}
