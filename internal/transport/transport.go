// Package transport owns the BLE device lifecycle: scanning, connecting,
// characteristic notification subscriptions and disconnection (spec.md
// §4.B). It is built on tinygo.org/x/bluetooth, following the adapter/
// scan/connect idiom of the bluetalk example.
package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

// Link Band GATT UUIDs (spec.md §4.B); EEG/PPG/ACC are the vendor's
// custom characteristics, battery reuses the standard GATT battery level
// characteristic.
var (
	eegCharUUID     = bluetooth.NewUUID([16]byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb})
	ppgCharUUID     = bluetooth.NewUUID([16]byte{0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb})
	accCharUUID     = bluetooth.NewUUID([16]byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb})
	batteryCharUUID = bluetooth.NewUUID([16]byte{0x00, 0x00, 0x2a, 0x19, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb})
)

// State is one node of the transport's connection lifecycle
// (spec.md §4.B state machine).
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateConnected
	StateStreaming
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Packet is one raw notification: the characteristic's bytes stamped
// with the host-side monotonic receive time (spec.md §4.B).
type Packet struct {
	Data   []byte
	THost  time.Time
}

// DisconnectFunc is invoked once, off the notification goroutine, when
// the active connection drops for any reason.
type DisconnectFunc func(reason error)

// Transport drives one BLE device connection at a time: scan, connect,
// subscribe to the four characteristic streams, disconnect.
type Transport struct {
	adapter *bluetooth.Adapter

	mu     sync.Mutex
	state  State
	device *bluetooth.Device

	onDisconnect DisconnectFunc

	eegCh     chan Packet
	ppgCh     chan Packet
	accCh     chan Packet
	batteryCh chan Packet
}

// New builds a Transport over the host's default BLE adapter. Each
// channel is buffered so the notification callback — which must never
// block — can enqueue without touching decoder internals directly.
func New() *Transport {
	return &Transport{
		adapter:   bluetooth.DefaultAdapter,
		eegCh:     make(chan Packet, 64),
		ppgCh:     make(chan Packet, 64),
		accCh:     make(chan Packet, 64),
		batteryCh: make(chan Packet, 8),
	}
}

// Enable powers on the host adapter. Call once before Scan.
func (t *Transport) Enable() error {
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBluetoothUnavailable, err)
	}
	return nil
}

// State returns the transport's current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// OnDisconnect registers the callback invoked when the active connection
// is lost, for any reason (explicit Disconnect excluded).
func (t *Transport) OnDisconnect(fn DisconnectFunc) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}

// Streams exposes the four per-sensor raw packet channels. Callers (the
// decode stage) must drain them continuously. The notification callback
// never blocks writing to them: when a channel is full, the incoming
// packet is dropped and a log line is written.
func (t *Transport) Streams() (eeg, ppg, acc, battery <-chan Packet) {
	return t.eegCh, t.ppgCh, t.accCh, t.batteryCh
}

// Scan discovers advertising Link Band devices for up to timeout,
// returning every distinct address seen (spec.md §4.B Scanning state).
func (t *Transport) Scan(ctx context.Context, timeout time.Duration) ([]model.DeviceDescriptor, error) {
	if t.State() != StateIdle {
		return nil, errs.ErrInvalidStateTransition
	}
	t.setState(StateScanning)
	defer t.setState(StateIdle)

	found := make(map[string]model.DeviceDescriptor)
	var mu sync.Mutex

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			mu.Lock()
			found[result.Address.String()] = model.DeviceDescriptor{
				Address:  result.Address.String(),
				Name:     result.LocalName(),
				LastSeen: time.Now(),
			}
			mu.Unlock()
		})
	}()

	select {
	case <-scanCtx.Done():
		t.adapter.StopScan()
		<-errCh
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrBluetoothUnavailable, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	devices := make([]model.DeviceDescriptor, 0, len(found))
	for _, d := range found {
		devices = append(devices, d)
	}
	return devices, nil
}

// Connect dials address, discovers the four characteristics and enables
// their notifications, entering Connected on success (spec.md §4.B).
func (t *Transport) Connect(ctx context.Context, address string) error {
	if t.State() != StateIdle {
		return errs.ErrAlreadyConnected
	}
	t.setState(StateConnecting)

	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		t.setState(StateIdle)
		return fmt.Errorf("%w: %v", errs.ErrNotFound, err)
	}
	bleAddr := bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}

	device, err := t.adapter.Connect(bleAddr, bluetooth.ConnectionParams{})
	if err != nil {
		t.setState(StateIdle)
		return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
	}

	if err := t.subscribeAll(device); err != nil {
		device.Disconnect()
		t.setState(StateIdle)
		return err
	}

	t.mu.Lock()
	t.device = &device
	t.mu.Unlock()

	t.adapter.SetConnectHandler(func(_ bluetooth.Device, connected bool) {
		if !connected {
			t.handleUnexpectedDisconnect()
		}
	})

	t.setState(StateConnected)
	return nil
}

func (t *Transport) subscribeAll(device bluetooth.Device) error {
	services, err := device.DiscoverServices(nil)
	if err != nil || len(services) == 0 {
		return fmt.Errorf("%w: discover services: %v", errs.ErrNotFound, err)
	}

	wants := []bluetooth.UUID{eegCharUUID, ppgCharUUID, accCharUUID, batteryCharUUID}
	var allChars []bluetooth.DeviceCharacteristic
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(wants)
		if err != nil {
			continue
		}
		allChars = append(allChars, chars...)
	}

	subscribed := 0
	for _, c := range allChars {
		c := c
		var dest chan Packet
		switch c.UUID() {
		case eegCharUUID:
			dest = t.eegCh
		case ppgCharUUID:
			dest = t.ppgCh
		case accCharUUID:
			dest = t.accCh
		case batteryCharUUID:
			dest = t.batteryCh
		default:
			continue
		}

		err := c.EnableNotifications(func(value []byte) {
			buf := make([]byte, len(value))
			copy(buf, value)
			select {
			case dest <- Packet{Data: buf, THost: time.Now()}:
			default:
				log.Printf("[transport] stream channel full, packet dropped")
			}
		})
		if err != nil {
			return fmt.Errorf("%w: enable notifications: %v", errs.ErrNotFound, err)
		}
		subscribed++
	}

	if subscribed < 4 {
		return fmt.Errorf("%w: only %d/4 characteristics found", errs.ErrNotFound, subscribed)
	}
	return nil
}

func (t *Transport) handleUnexpectedDisconnect() {
	t.mu.Lock()
	t.state = StateIdle
	t.device = nil
	cb := t.onDisconnect
	t.mu.Unlock()

	if cb != nil {
		cb(errs.ErrDeviceLost)
	}
}

// Disconnect tears down the active connection, if any, and returns to
// Idle (spec.md §4.B Disconnecting state).
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	device := t.device
	t.state = StateDisconnecting
	t.mu.Unlock()

	if device != nil {
		if err := device.Disconnect(); err != nil {
			t.setState(StateIdle)
			return fmt.Errorf("%w: %v", errs.ErrDeviceLost, err)
		}
	}

	t.mu.Lock()
	t.device = nil
	t.state = StateIdle
	t.mu.Unlock()
	return nil
}

// MarkStreaming transitions Connected -> Streaming once the decode/DSP
// pipeline has attached to the four channels.
func (t *Transport) MarkStreaming() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateConnected {
		return errs.ErrInvalidStateTransition
	}
	t.state = StateStreaming
	return nil
}

// MarkConnected transitions Streaming back to Connected when streaming
// is stopped without disconnecting.
func (t *Transport) MarkConnected() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateStreaming {
		return errs.ErrInvalidStateTransition
	}
	t.state = StateConnected
	return nil
}
