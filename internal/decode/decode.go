// Package decode turns raw BLE notification payloads into typed
// samples, reconstructing per-sample device timestamps from each
// packet's embedded anchor (spec.md §4.C).
package decode

import (
	"encoding/binary"
	"log"
	"os"

	"github.com/looxidlabs/link-band-core/internal/errs"
)

var logger = log.New(os.Stderr, "[decode] ", log.LstdFlags)

// Counters tracks the per-decoder error/event counts spec.md §4.C and
// §8 name: short/bad-length packets, reordering drops and packet gaps.
type Counters struct {
	ShortPackets      uint64
	BadLength         uint64
	ReorderDrops      uint64
	GapsObserved      uint64
}

// anchorSeconds converts a 4-byte little-endian firmware-tick anchor to
// seconds. One firmware tick is one millisecond, so the tick count is
// divided by 1000; kept as its own function so a future firmware
// revision with a different tick rate only changes this one conversion.
func anchorSeconds(raw []byte) (float64, error) {
	if len(raw) < 4 {
		return 0, errs.ErrShortPacket
	}
	ticks := binary.LittleEndian.Uint32(raw)
	return float64(ticks) / 1000.0, nil
}

// int24BE reads a 24-bit big-endian two's-complement signed integer.
func int24BE(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v |= ^int32(0xFFFFFF)
	}
	return v
}

// uint24BE reads a 24-bit big-endian unsigned integer.
func uint24BE(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// checkGap logs (but does not synthesize samples for) a packet-to-packet
// anchor jump more than 2x the expected inter-packet interval.
func checkGap(counters *Counters, sensor string, prevAnchor, anchor, expectedInterval float64, hasPrev bool) {
	if !hasPrev || expectedInterval <= 0 {
		return
	}
	delta := anchor - prevAnchor
	if delta > 2*expectedInterval {
		counters.GapsObserved++
		logger.Printf("%s: packet gap of %.3fs observed (expected ~%.3fs), no samples synthesized", sensor, delta, expectedInterval)
	}
}
