package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/looxidlabs/link-band-core/internal/model"
)

func TestDetrendRemovesMean(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	out := Detrend(xs)
	sum := 0.0
	for _, x := range out {
		sum += x
	}
	require.InDelta(t, 0, sum, 1e-9)
}

func TestNotchAttenuatesTargetFrequency(t *testing.T) {
	const fs = 250.0
	const n = 2048
	notch := NewNotch(50, 30, fs)

	in := make([]float64, n)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 50 * float64(i) / fs)
	}
	out := notch.ProcessBuffer(in)

	// steady-state RMS should drop sharply once the filter settles
	settleFrom := n / 2
	rmsIn := rms(in[settleFrom:])
	rmsOut := rms(out[settleFrom:])
	require.Less(t, rmsOut, rmsIn*0.3)
}

func TestBandpassPassesInBandAttenuatesOutOfBand(t *testing.T) {
	const fs = 250.0
	const n = 4096

	inBand := make([]float64, n)
	outOfBand := make([]float64, n)
	for i := range inBand {
		inBand[i] = math.Sin(2 * math.Pi * 10 * float64(i) / fs)
		outOfBand[i] = math.Sin(2 * math.Pi * 0.1 * float64(i) / fs)
	}

	bp1 := NewBandpass(1, 45, fs)
	bp2 := NewBandpass(1, 45, fs)

	outIn := bp1.ProcessBuffer(inBand)
	outOut := bp2.ProcessBuffer(outOfBand)

	settleFrom := n / 2
	require.Greater(t, rms(outIn[settleFrom:]), rms(outOut[settleFrom:]))
}

func rms(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func TestWelchBandPowersUnderfilled(t *testing.T) {
	powers, freqs, sqi := WelchBandPowers(nil, 250)
	require.Equal(t, BandPowers{}, powers)
	require.Nil(t, freqs)
	require.Equal(t, 0.0, sqi)
}

func TestPpgZeroPeaksYieldsZeroHRAndSQI(t *testing.T) {
	flat := make([]float64, 500)
	peaks := DetectPeaks(flat, 50)
	require.Empty(t, peaks)

	hrv := ComputeHRV(peaks, 50)
	require.Equal(t, 0.0, hrv.HeartRateBpm)
	require.Equal(t, 0.0, hrv.SdnnMs)
	require.Equal(t, 0.0, hrv.RmssdMs)

	sqi := PeakProminenceSQI(flat, peaks)
	require.Equal(t, 0.0, sqi)
}

func TestPpgDetectsPeriodicPeaks(t *testing.T) {
	const fs = 50.0
	n := 500
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = math.Sin(2 * math.Pi * 1.2 * float64(i) / fs) // ~72 bpm
	}

	peaks := DetectPeaks(xs, fs)
	require.NotEmpty(t, peaks)

	hrv := ComputeHRV(peaks, fs)
	require.InDelta(t, 72, hrv.HeartRateBpm, 10)
}

func TestAccConstantGravityYieldsStillAndZeroMagnitude(t *testing.T) {
	const fs = 30.0
	ch := NewAccChannel(fs)

	n := 90
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := range z {
		z[i] = accCountsPerG // constant 1g on Z, nothing on X/Y
	}

	// Warm up the low-pass filters and the gravity EMA so the
	// asserted window reflects steady state, not start-up transient.
	for i := 0; i < 20; i++ {
		ch.Process(x, y, z)
	}

	result := ch.Process(x, y, z)
	require.Equal(t, model.ActivityStill, result.ActivityLabel)
	for _, m := range result.Magnitude {
		require.InDelta(t, 0, m, 0.05)
	}
}
