package decode

import (
	"encoding/binary"

	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

const (
	accNominalRate   = 30.0
	accBytesPerEntry = 2 + 2 + 2 // x, y, z: 16-bit signed little-endian
)

// AccDecoder reconstructs AccSample batches from raw packets.
type AccDecoder struct {
	Counters Counters

	hasPrev     bool
	prevAnchor  float64
	lastTDevice float64
}

// Decode parses one accelerometer notification payload into its samples.
func (d *AccDecoder) Decode(raw []byte) ([]model.AccSample, error) {
	if len(raw) < 4 {
		d.Counters.ShortPackets++
		return nil, errs.ErrShortPacket
	}

	body := raw[4:]
	if len(body)%accBytesPerEntry != 0 {
		d.Counters.BadLength++
		return nil, errs.ErrUnexpectedLength
	}
	n := len(body) / accBytesPerEntry
	if n == 0 {
		d.Counters.ShortPackets++
		return nil, errs.ErrShortPacket
	}

	t0, err := anchorSeconds(raw[:4])
	if err != nil {
		d.Counters.ShortPackets++
		return nil, err
	}

	interval := 1.0 / accNominalRate
	if d.hasPrev && t0 < d.lastTDevice-2*interval {
		d.Counters.ReorderDrops++
		return nil, errs.ErrReorderDropped
	}
	checkGap(&d.Counters, "acc", d.prevAnchor, t0, interval, d.hasPrev)

	samples := make([]model.AccSample, n)
	for i := 0; i < n; i++ {
		off := i * accBytesPerEntry
		x := int16(binary.LittleEndian.Uint16(body[off : off+2]))
		y := int16(binary.LittleEndian.Uint16(body[off+2 : off+4]))
		z := int16(binary.LittleEndian.Uint16(body[off+4 : off+6]))

		samples[i] = model.AccSample{
			TDevice: t0 + float64(i)/accNominalRate,
			X:       float64(x),
			Y:       float64(y),
			Z:       float64(z),
		}
	}

	d.prevAnchor = t0
	d.lastTDevice = samples[n-1].TDevice
	d.hasPrev = true

	return samples, nil
}
