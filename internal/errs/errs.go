// Package errs defines the error taxonomy from the error handling
// design (spec.md §7). Every sentinel is non-fatal unless documented
// otherwise; callers compare with errors.Is.
package errs

import "errors"

// Transport errors.
var (
	ErrBluetoothUnavailable = errors.New("transport: bluetooth adapter unavailable")
	ErrDeviceLost           = errors.New("transport: device lost")
	ErrNotifyFailed         = errors.New("transport: characteristic notify failed")
	ErrNotFound             = errors.New("transport: device not found")
	ErrTimeout              = errors.New("transport: operation timed out")
	ErrAlreadyConnected     = errors.New("transport: already connected")
)

// Decode errors.
var (
	ErrShortPacket      = errors.New("decode: short packet")
	ErrUnexpectedLength = errors.New("decode: unexpected packet length")
	ErrReorderDropped   = errors.New("decode: packet dropped, timestamp reorder")
)

// Process errors.
var (
	ErrNumericFailure    = errors.New("process: numeric failure")
	ErrWindowUnderfilled = errors.New("process: window underfilled")
	ErrAlgorithmTimeout  = errors.New("process: algorithm timeout")
)

// Recorder errors.
var (
	ErrWriteFailed          = errors.New("recorder: write failed")
	ErrDirectoryCreateFailed = errors.New("recorder: directory create failed")
)

// Protocol errors.
var (
	ErrUnknownCommand = errors.New("protocol: unknown command")
	ErrBadPayload     = errors.New("protocol: bad payload")
	ErrSlowConsumer   = errors.New("protocol: slow consumer")
	ErrUnknownChannel = errors.New("protocol: unknown channel")
)

// State errors.
var (
	ErrNotConnected           = errors.New("state: not connected")
	ErrAlreadyRunning         = errors.New("state: already running")
	ErrAlreadyRecording       = errors.New("state: already recording")
	ErrNotRecording           = errors.New("state: not recording")
	ErrNotRunning             = errors.New("state: not running")
	ErrBusy                   = errors.New("state: busy")
	ErrInvalidStateTransition = errors.New("state: invalid transition")
)

// Ambient/config errors.
var (
	ErrPortInUse = errors.New("config: websocket port already in use")
)
