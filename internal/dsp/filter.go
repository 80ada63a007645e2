package dsp

import "math"

// Biquad is a direct-form-1 second-order IIR section, run forward-only
// in real time (spec.md REDESIGN FLAGS: this module always applies
// causal filtering, never the zero-phase/offline variant the original
// implementation names but does not actually use in its streaming
// path — a trailing-edge transient is the accepted trade-off).
type Biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// Process filters one sample and updates the section's state.
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

// ProcessBuffer filters a whole buffer in place order, forward only.
func (b *Biquad) ProcessBuffer(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = b.Process(x)
	}
	return out
}

// NewNotch builds an RBJ-cookbook notch section at centerHz with the
// given quality factor, sampled at fs Hz.
func NewNotch(centerHz, q, fs float64) *Biquad {
	w0 := 2 * math.Pi * centerHz / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0, b1, b2 := 1.0, -2*cosw0, 1.0
	a0, a1, a2 := 1+alpha, -2*cosw0, 1-alpha

	return &Biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// NewButterworthLowpass builds a maximally-flat 2nd-order low-pass
// section (Q = 1/sqrt(2)) with cutoff cutoffHz, sampled at fs Hz.
func NewButterworthLowpass(cutoffHz, fs float64) *Biquad {
	const q = 0.7071067811865476
	w0 := 2 * math.Pi * cutoffHz / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := (1 - cosw0) / 2
	b1 := 1 - cosw0
	b2 := (1 - cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &Biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// NewButterworthHighpass builds a maximally-flat 2nd-order high-pass
// section (Q = 1/sqrt(2)) with cutoff cutoffHz, sampled at fs Hz.
func NewButterworthHighpass(cutoffHz, fs float64) *Biquad {
	const q = 0.7071067811865476
	w0 := 2 * math.Pi * cutoffHz / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := (1 + cosw0) / 2
	b1 := -(1 + cosw0)
	b2 := (1 + cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &Biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// BandpassFilter is a 4th-order (two cascaded 2nd-order sections)
// Butterworth band-pass built from a high-pass followed by a low-pass,
// matching spec.md §4.E's "4th-order Butterworth" requirement for EEG
// and reused for PPG's 0.5-5 Hz band.
type BandpassFilter struct {
	hp, lp *Biquad
}

// NewBandpass builds a band-pass filter passing [lowHz, highHz] at
// sample rate fs.
func NewBandpass(lowHz, highHz, fs float64) *BandpassFilter {
	return &BandpassFilter{
		hp: NewButterworthHighpass(lowHz, fs),
		lp: NewButterworthLowpass(highHz, fs),
	}
}

// Process filters one sample through the high-pass then low-pass stage.
func (f *BandpassFilter) Process(x float64) float64 {
	return f.lp.Process(f.hp.Process(x))
}

// ProcessBuffer filters a whole buffer, forward only.
func (f *BandpassFilter) ProcessBuffer(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = f.Process(x)
	}
	return out
}

// Detrend subtracts the buffer's mean, returning a new slice.
func Detrend(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x - mean
	}
	return out
}
