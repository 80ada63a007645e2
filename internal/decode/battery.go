package decode

import (
	"time"

	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

// BatteryDecoder turns a single-byte battery level notification into a
// BatterySample. Battery packets carry no anchor of their own; the
// decoder stamps t_device from the host clock at receipt, since the
// firmware emits at most 1 Hz and any device-clock drift over that
// interval is immaterial to the spec's monotonicity invariant.
type BatteryDecoder struct {
	Counters Counters

	start   time.Time
	started bool
}

// Decode parses one battery notification payload.
func (d *BatteryDecoder) Decode(raw []byte, hostNow time.Time) (model.BatterySample, error) {
	if len(raw) < 1 {
		d.Counters.ShortPackets++
		return model.BatterySample{}, errs.ErrShortPacket
	}

	if !d.started {
		d.start = hostNow
		d.started = true
	}

	level := int(raw[0])
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}

	return model.BatterySample{
		TDevice:      hostNow.Sub(d.start).Seconds(),
		LevelPercent: level,
	}, nil
}
