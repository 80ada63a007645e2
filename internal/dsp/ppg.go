package dsp

import "math"

const (
	ppgRefractorySeconds  = 0.3
	ppgThresholdFraction  = 0.6
)

// PpgChannel holds the persistent band-pass filter state for the PPG
// pipeline (spec.md §4.E).
type PpgChannel struct {
	bandpass *BandpassFilter
}

// NewPpgChannel builds the 0.5-5 Hz band-pass stage sampled at fs.
func NewPpgChannel(fs float64) *PpgChannel {
	return &PpgChannel{bandpass: NewBandpass(0.5, 5, fs)}
}

// Process runs the band-pass filter over one analysis window.
func (c *PpgChannel) Process(window []float64) []float64 {
	return c.bandpass.ProcessBuffer(window)
}

// DetectPeaks finds systolic peaks in a filtered PPG signal sampled at
// fs Hz using an adaptive threshold (0.6x running max) and a 300ms
// refractory period (spec.md §4.E step 2). Returns peak sample indices.
func DetectPeaks(filtered []float64, fs float64) []int {
	if len(filtered) == 0 {
		return nil
	}

	runningMax := filtered[0]
	refractorySamples := int(ppgRefractorySeconds * fs)
	var peaks []int
	lastPeak := -refractorySamples - 1

	for i := 1; i < len(filtered)-1; i++ {
		if filtered[i] > runningMax {
			runningMax = filtered[i]
		}
		threshold := ppgThresholdFraction * runningMax
		isLocalMax := filtered[i] > filtered[i-1] && filtered[i] >= filtered[i+1]

		if isLocalMax && filtered[i] >= threshold && i-lastPeak > refractorySamples {
			peaks = append(peaks, i)
			lastPeak = i
		}
	}

	return peaks
}

// HRVResult carries heart rate and the two standard HRV time-domain
// metrics derived from inter-beat intervals (spec.md §4.E step 3).
type HRVResult struct {
	HeartRateBpm float64
	SdnnMs       float64
	RmssdMs      float64
}

// ComputeHRV turns peak sample indices (at sample rate fs) into IBIs and
// derives HR/SDNN/RMSSD. With fewer than two peaks there are no IBIs:
// HR and SQI-adjacent metrics are reported as zero, never NaN (spec.md
// §8 boundary behavior).
func ComputeHRV(peaks []int, fs float64) HRVResult {
	if len(peaks) < 2 {
		return HRVResult{}
	}

	ibisMs := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		dt := float64(peaks[i]-peaks[i-1]) / fs
		ibisMs = append(ibisMs, dt*1000)
	}

	meanIBI := mean(ibisMs)
	hr := 0.0
	if meanIBI > 0 {
		hr = 60000.0 / meanIBI
	}

	sdnn := stddev(ibisMs, meanIBI)

	rmssd := 0.0
	if len(ibisMs) >= 2 {
		sumSq := 0.0
		for i := 1; i < len(ibisMs); i++ {
			d := ibisMs[i] - ibisMs[i-1]
			sumSq += d * d
		}
		rmssd = math.Sqrt(sumSq / float64(len(ibisMs)-1))
	}

	return HRVResult{HeartRateBpm: hr, SdnnMs: sdnn, RmssdMs: rmssd}
}

// PeakProminenceSQI derives a signal quality index from the spread of
// peak heights: 1 minus the coefficient of variation of the filtered
// value at each peak, clipped to [0,1]. Steady, similarly-sized peaks
// score close to 1; erratic heights (noise, motion) drive the score
// toward 0. The height used is the filtered value itself; prominence
// above the neighbouring troughs is not computed.
func PeakProminenceSQI(filtered []float64, peaks []int) float64 {
	if len(peaks) == 0 {
		return 0
	}
	if len(peaks) == 1 {
		return 1
	}

	prominences := make([]float64, len(peaks))
	for i, p := range peaks {
		prominences[i] = filtered[p]
	}

	m := mean(prominences)
	if m == 0 {
		return 0
	}
	sd := stddev(prominences, m)
	cv := sd / math.Abs(m) // coefficient of variation

	sqi := 1 - cv
	return math.Max(0, math.Min(1, sqi))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
