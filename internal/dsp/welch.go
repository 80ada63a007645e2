package dsp

import "math/cmplx"

// WelchPSD computes the one-sided power spectral density of xs using
// Welch's method: 1-second segments (segmentLen samples), 50% overlap,
// Hann window, sampled at fs Hz (spec.md §4.E step 4).
//
// Returns the PSD magnitude per frequency bin and the corresponding
// frequency axis in Hz.
func WelchPSD(xs []float64, segmentLen int, fs float64) (psd, freqs []float64) {
	if segmentLen <= 0 || len(xs) == 0 {
		return nil, nil
	}
	if segmentLen > len(xs) {
		segmentLen = len(xs)
	}

	fftLen := nextPow2(segmentLen)
	step := segmentLen / 2
	if step <= 0 {
		step = 1
	}

	window := hannWindow(segmentLen)
	windowPower := 0.0
	for _, w := range window {
		windowPower += w * w
	}

	nBins := fftLen/2 + 1
	accum := make([]float64, nBins)
	segments := 0

	for start := 0; start+segmentLen <= len(xs); start += step {
		buf := make([]complex128, fftLen)
		for i := 0; i < segmentLen; i++ {
			buf[i] = complex(xs[start+i]*window[i], 0)
		}

		spectrum := fft(buf)
		for k := 0; k < nBins; k++ {
			mag := cmplx.Abs(spectrum[k])
			accum[k] += (mag * mag)
		}
		segments++
	}

	if segments == 0 {
		// Window shorter than one full segment: use a single padded segment.
		buf := make([]complex128, fftLen)
		for i := 0; i < len(xs) && i < segmentLen; i++ {
			buf[i] = complex(xs[i]*window[i], 0)
		}
		spectrum := fft(buf)
		for k := 0; k < nBins; k++ {
			mag := cmplx.Abs(spectrum[k])
			accum[k] = mag * mag
		}
		segments = 1
	}

	scale := 1.0 / (fs * windowPower * float64(segments))
	psd = make([]float64, nBins)
	for k := range accum {
		v := accum[k] * scale
		if k != 0 && k != nBins-1 {
			v *= 2 // fold negative frequencies into the one-sided estimate
		}
		psd[k] = v
	}

	freqs = make([]float64, nBins)
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(fftLen)
	}

	return psd, freqs
}

// BandPower integrates psd over [loHz, hiHz] using the trapezoidal rule
// against the bin spacing implied by freqs.
func BandPower(psd, freqs []float64, loHz, hiHz float64) float64 {
	if len(psd) < 2 || len(psd) != len(freqs) {
		return 0
	}
	df := freqs[1] - freqs[0]
	total := 0.0
	for k, f := range freqs {
		if f >= loHz && f <= hiHz {
			total += psd[k] * df
		}
	}
	return total
}

// TotalPower integrates psd over the full spectrum.
func TotalPower(psd, freqs []float64) float64 {
	if len(psd) < 2 {
		return 0
	}
	df := freqs[1] - freqs[0]
	total := 0.0
	for _, p := range psd {
		total += p * df
	}
	return total
}
