package decode

import (
	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

// EEG conversion constants (spec.md §4.C): microvolts = counts * VRef /
// (gain * fullScale) * 1e6, where fullScale is the 24-bit signed range.
const (
	EegVRef      = 4.033
	EegGain      = 12.0
	eegFullScale = (1 << 23) - 1

	eegNominalRate   = 250.0
	eegBytesPerEntry = 1 + 3 + 3 // status byte + ch1 24-bit + ch2 24-bit

	eegLeadoffCh1Bit = 1 << 0
	eegLeadoffCh2Bit = 1 << 1
)

// EegDecoder reconstructs EegSample batches from raw packets, carrying
// the state needed to detect reordered or gapped packets across calls.
type EegDecoder struct {
	Counters Counters

	hasPrev     bool
	prevAnchor  float64
	lastTDevice float64
}

func countsToMicrovolts(counts int32) float64 {
	return float64(counts) * EegVRef / (EegGain * eegFullScale) * 1e6
}

// Decode parses one EEG notification payload into its samples.
func (d *EegDecoder) Decode(raw []byte) ([]model.EegSample, error) {
	if len(raw) < 4 {
		d.Counters.ShortPackets++
		return nil, errs.ErrShortPacket
	}

	body := raw[4:]
	if len(body)%eegBytesPerEntry != 0 {
		d.Counters.BadLength++
		return nil, errs.ErrUnexpectedLength
	}
	n := len(body) / eegBytesPerEntry
	if n == 0 {
		d.Counters.ShortPackets++
		return nil, errs.ErrShortPacket
	}

	t0, err := anchorSeconds(raw[:4])
	if err != nil {
		d.Counters.ShortPackets++
		return nil, err
	}

	interval := 1.0 / eegNominalRate
	if d.hasPrev && t0 < d.lastTDevice-2*interval {
		d.Counters.ReorderDrops++
		return nil, errs.ErrReorderDropped
	}
	checkGap(&d.Counters, "eeg", d.prevAnchor, t0, interval, d.hasPrev)

	samples := make([]model.EegSample, n)
	for i := 0; i < n; i++ {
		off := i * eegBytesPerEntry
		status := body[off]
		ch1 := int24BE(body[off+1 : off+4])
		ch2 := int24BE(body[off+4 : off+7])

		samples[i] = model.EegSample{
			TDevice:    t0 + float64(i)/eegNominalRate,
			Ch1uV:      countsToMicrovolts(ch1),
			Ch2uV:      countsToMicrovolts(ch2),
			LeadoffCh1: status&eegLeadoffCh1Bit != 0,
			LeadoffCh2: status&eegLeadoffCh2Bit != 0,
		}
	}

	d.prevAnchor = t0
	d.lastTDevice = samples[n-1].TDevice
	d.hasPrev = true

	return samples, nil
}
