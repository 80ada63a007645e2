package dsp

import (
	"math"

	"github.com/looxidlabs/link-band-core/internal/model"
)

// Activity classification thresholds, in g units of magnitude RMS
// (spec.md §4.E step 3).
const (
	accActivityStillMax  = 0.02
	accActivityLowMax    = 0.1
	accActivityMediumMax = 0.3
)

// AccChannel holds the persistent low-pass filter state for the x, y
// and z axes and the gravity estimate for the magnitude signal
// (spec.md §4.E).
type AccChannel struct {
	lowpassX, lowpassY, lowpassZ *Biquad

	gravityEMA   float64
	gravitySet   bool
	emaAlpha     float64
}

// NewAccChannel builds the 10 Hz low-pass stage sampled at fs, plus the
// slow gravity EMA (tau=2s, spec.md §4.E step 2).
func NewAccChannel(fs float64) *AccChannel {
	const tauSeconds = 2.0
	dt := 1.0 / fs
	alpha := dt / (tauSeconds + dt)

	return &AccChannel{
		lowpassX: NewButterworthLowpass(10, fs),
		lowpassY: NewButterworthLowpass(10, fs),
		lowpassZ: NewButterworthLowpass(10, fs),
		emaAlpha: alpha,
	}
}

// AccResult is the filtered per-axis signal plus derived magnitude and
// activity classification for one analysis window.
type AccResult struct {
	FilteredX, FilteredY, FilteredZ []float64
	Magnitude                       []float64
	ActivityLabel                   model.ActivityLabel
}

// counts-per-g is a nominal LSB/g scale for the raw 16-bit accelerometer
// counts; without a firmware datasheet in scope this is the one
// calibration constant the spec leaves implicit.
const accCountsPerG = 8192.0

// Process filters x/y/z, derives gravity-compensated magnitude and
// classifies activity from the window's magnitude RMS.
func (c *AccChannel) Process(x, y, z []float64) AccResult {
	fx := c.lowpassX.ProcessBuffer(x)
	fy := c.lowpassY.ProcessBuffer(y)
	fz := c.lowpassZ.ProcessBuffer(z)

	magnitude := make([]float64, len(fx))
	sumSq := 0.0
	for i := range fx {
		gx, gy, gz := fx[i]/accCountsPerG, fy[i]/accCountsPerG, fz[i]/accCountsPerG
		raw := math.Sqrt(gx*gx + gy*gy + gz*gz)

		if !c.gravitySet {
			c.gravityEMA = raw
			c.gravitySet = true
		} else {
			c.gravityEMA = c.emaAlpha*raw + (1-c.emaAlpha)*c.gravityEMA
		}

		m := raw - c.gravityEMA
		magnitude[i] = m
		sumSq += m * m
	}

	rms := 0.0
	if len(magnitude) > 0 {
		rms = math.Sqrt(sumSq / float64(len(magnitude)))
	}

	return AccResult{
		FilteredX:     fx,
		FilteredY:     fy,
		FilteredZ:     fz,
		Magnitude:     magnitude,
		ActivityLabel: classifyActivity(rms),
	}
}

func classifyActivity(rms float64) model.ActivityLabel {
	switch {
	case rms < accActivityStillMax:
		return model.ActivityStill
	case rms < accActivityLowMax:
		return model.ActivityLow
	case rms < accActivityMediumMax:
		return model.ActivityMedium
	default:
		return model.ActivityHigh
	}
}
