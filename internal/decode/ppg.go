package decode

import (
	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

const (
	ppgNominalRate   = 50.0
	ppgBytesPerEntry = 3 + 3 // red 24-bit + ir 24-bit, both unsigned big-endian
)

// PpgDecoder reconstructs PpgSample batches from raw packets.
type PpgDecoder struct {
	Counters Counters

	hasPrev     bool
	prevAnchor  float64
	lastTDevice float64
}

// Decode parses one PPG notification payload into its samples.
func (d *PpgDecoder) Decode(raw []byte) ([]model.PpgSample, error) {
	if len(raw) < 4 {
		d.Counters.ShortPackets++
		return nil, errs.ErrShortPacket
	}

	body := raw[4:]
	if len(body)%ppgBytesPerEntry != 0 {
		d.Counters.BadLength++
		return nil, errs.ErrUnexpectedLength
	}
	n := len(body) / ppgBytesPerEntry
	if n == 0 {
		d.Counters.ShortPackets++
		return nil, errs.ErrShortPacket
	}

	t0, err := anchorSeconds(raw[:4])
	if err != nil {
		d.Counters.ShortPackets++
		return nil, err
	}

	interval := 1.0 / ppgNominalRate
	if d.hasPrev && t0 < d.lastTDevice-2*interval {
		d.Counters.ReorderDrops++
		return nil, errs.ErrReorderDropped
	}
	checkGap(&d.Counters, "ppg", d.prevAnchor, t0, interval, d.hasPrev)

	samples := make([]model.PpgSample, n)
	for i := 0; i < n; i++ {
		off := i * ppgBytesPerEntry
		red := uint24BE(body[off : off+3])
		ir := uint24BE(body[off+3 : off+6])

		samples[i] = model.PpgSample{
			TDevice: t0 + float64(i)/ppgNominalRate,
			Red:     float64(red),
			Ir:      float64(ir),
		}
	}

	d.prevAnchor = t0
	d.lastTDevice = samples[n-1].TDevice
	d.hasPrev = true

	return samples, nil
}
