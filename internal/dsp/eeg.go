package dsp

import "math"

// EEG band edges, Hz (spec.md §4.E step 5).
var eegBands = []struct {
	Lo, Hi float64
}{
	{0.5, 4},  // delta
	{4, 8},    // theta
	{8, 13},   // alpha
	{13, 30},  // beta
	{30, 45},  // gamma
}

// BandPowers is the five canonical EEG band powers, in the order the
// model.BandPower struct expects them.
type BandPowers struct {
	Delta, Theta, Alpha, Beta, Gamma float64
}

// EegChannel holds the persistent filter state for one EEG channel
// across successive processing windows (notch + band-pass are IIR, so
// their state must carry over between calls for a stable response).
type EegChannel struct {
	notch     *Biquad
	bandpass  *BandpassFilter
}

// NewEegChannel builds the per-channel filter chain: 50 Hz notch
// (Q=30) then 1-45 Hz band-pass (spec.md §4.E steps 2-3), sampled at fs.
func NewEegChannel(fs float64) *EegChannel {
	return &EegChannel{
		notch:    NewNotch(50, 30, fs),
		bandpass: NewBandpass(1, 45, fs),
	}
}

// Process runs detrend -> notch -> band-pass over window (one DSP
// analysis window's worth of raw samples) and returns the filtered
// time-domain signal.
func (c *EegChannel) Process(window []float64) []float64 {
	detrended := Detrend(window)
	notched := c.notch.ProcessBuffer(detrended)
	return c.bandpass.ProcessBuffer(notched)
}

// WelchBandPowers computes Welch PSD over filtered (1s segments, 50%
// overlap, Hann window already applied inside WelchPSD) and integrates
// the five canonical bands, returning the powers, the frequency axis
// used, and an SQI: the ratio of in-band (0.5-45 Hz) power to total
// spectral power, clipped to [0,1] (spec.md §4.E steps 4-6).
func WelchBandPowers(filtered []float64, fs float64) (BandPowers, []float64, float64) {
	segmentLen := int(fs) // 1-second segments
	psd, freqs := WelchPSD(filtered, segmentLen, fs)
	if len(psd) == 0 {
		return BandPowers{}, nil, 0
	}

	powers := BandPowers{
		Delta: BandPower(psd, freqs, eegBands[0].Lo, eegBands[0].Hi),
		Theta: BandPower(psd, freqs, eegBands[1].Lo, eegBands[1].Hi),
		Alpha: BandPower(psd, freqs, eegBands[2].Lo, eegBands[2].Hi),
		Beta:  BandPower(psd, freqs, eegBands[3].Lo, eegBands[3].Hi),
		Gamma: BandPower(psd, freqs, eegBands[4].Lo, eegBands[4].Hi),
	}

	total := TotalPower(psd, freqs)
	inBand := powers.Delta + powers.Theta + powers.Alpha + powers.Beta + powers.Gamma

	sqi := 0.0
	if total > 0 {
		sqi = inBand / total
	}
	sqi = math.Max(0, math.Min(1, sqi))

	return powers, freqs, sqi
}
