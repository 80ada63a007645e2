// Package supervisor owns the lifecycle of every long-running task in
// the acquisition/processing/fan-out pipeline: the transport reader,
// decoder+broadcast and DSP tasks for each sensor, the recorder, and the
// 1 Hz stats job (spec.md §4.I). It is the only component that mutates
// device/session state. REST/WS callers reach its verb methods through
// the control package's single command actor (spec.md §5); the
// device-lost reconnect path also calls StartStreaming from its own
// goroutine, and Shutdown is called by the process entrypoint. Its
// fields are guarded by its own mutex.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/looxidlabs/link-band-core/internal/buffer"
	"github.com/looxidlabs/link-band-core/internal/bus"
	"github.com/looxidlabs/link-band-core/internal/config"
	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
	"github.com/looxidlabs/link-band-core/internal/monitor"
	"github.com/looxidlabs/link-band-core/internal/recorder"
	"github.com/looxidlabs/link-band-core/internal/registry"
	"github.com/looxidlabs/link-band-core/internal/transport"
)

// State is one node of the supervisor's own lifecycle, layered above
// the transport's connection state machine (spec.md §4.I).
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateStreaming
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// reconnectAttempts/backoff bounds for transport.ErrDeviceLost recovery
// (spec.md §7: "up to 5, back-off 1-10s").
const (
	maxReconnectAttempts = 5
	reconnectBackoffMin  = 1 * time.Second
	reconnectBackoffMax  = 10 * time.Second
)

// ringWindowSeconds sizes the EEG/PPG/ACC ring buffers independent of
// cfg.*WindowS, which instead sizes the DSP task's read window (spec.md
// §3 defaults: EEG 10s/2500, PPG 10s/500, ACC 10s/~300). The ring must
// hold at least a full DSP window with headroom, not exactly one, or a
// processing hiccup evicts samples the next tick still needed.
const (
	ringWindowSeconds        = 10
	batteryRingWindowSeconds = 60
)

// StatusInfo is the §4.J status() verb's result shape.
type StatusInfo struct {
	Connected bool                        `json:"connected"`
	Address   string                      `json:"address,omitempty"`
	Streaming bool                        `json:"streaming"`
	Rates     map[model.SensorKind]float64 `json:"rates"`
	Battery   *int                        `json:"battery,omitempty"`
}

// Supervisor wires together every acquisition-pipeline component and
// exposes the §4.J verb table.
type Supervisor struct {
	cfg       config.Config
	registry  *registry.Registry
	transport *transport.Transport
	bus       *bus.Bus
	recorder  *recorder.Recorder
	monitor   *monitor.Monitor
	scheduler gocron.Scheduler

	mu          sync.Mutex
	state       State
	device      *model.DeviceDescriptor
	rings       map[model.SensorKind]*buffer.Ring
	budgets     map[model.SensorKind]*restartBudget
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	recordStart time.Time

	lastStatus   StatusInfo
	lastStatusAt time.Time
	lastSession  *model.Session

	reconnect func(address string) error
}

// New builds a Supervisor. The bus's CommandHandler is wired separately
// by the control package once it has a reference back to this
// Supervisor (spec.md §4.J verb table / command actor split).
func New(cfg config.Config, reg *registry.Registry, t *transport.Transport, b *bus.Bus, rec *recorder.Recorder, mon *monitor.Monitor) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		registry:  reg,
		transport: t,
		bus:       b,
		recorder:  rec,
		monitor:   mon,
		rings:     make(map[model.SensorKind]*buffer.Ring),
		budgets:   make(map[model.SensorKind]*restartBudget),
	}

	s.rings[model.SensorEEG] = buffer.NewRing(buffer.Capacity(model.SensorEEG.NominalRate(), ringWindowSeconds))
	s.rings[model.SensorPPG] = buffer.NewRing(buffer.Capacity(model.SensorPPG.NominalRate(), ringWindowSeconds))
	s.rings[model.SensorACC] = buffer.NewRing(buffer.Capacity(model.SensorACC.NominalRate(), ringWindowSeconds))
	s.rings[model.SensorBattery] = buffer.NewRing(buffer.Capacity(model.SensorBattery.NominalRate(), batteryRingWindowSeconds))

	for _, k := range []model.SensorKind{model.SensorEEG, model.SensorPPG, model.SensorACC, model.SensorBattery} {
		s.budgets[k] = newRestartBudget()
	}

	s.reconnect = s.Connect
	t.OnDisconnect(s.handleDeviceLost)
	return s
}

// SetReconnectFunc overrides how a device-lost reconnect dials the
// device. The control package wires this to its own command actor so a
// background reconnect is serialized against client-issued connect()
// calls instead of racing s.Connect directly from its own goroutine
// (spec.md §5, S6). Defaults to calling Connect directly, which callers
// without a control.Adapter (e.g. tests) can rely on.
func (s *Supervisor) SetReconnectFunc(fn func(address string) error) {
	s.mu.Lock()
	s.reconnect = fn
	s.mu.Unlock()
}

// Initialize transitions Uninitialized -> Initialized: it enables the
// BLE adapter and starts the gocron-scheduled 1 Hz stats-broadcast job
// that runs for the supervisor's whole lifetime. There is no separate
// monitor-tick job: the monitor computes its rolling rates when a
// snapshot is taken.
func (s *Supervisor) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return nil
	}

	if err := s.transport.Enable(); err != nil {
		return err
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	s.scheduler = sched

	if _, err := sched.NewJob(gocron.DurationJob(1*time.Second), gocron.NewTask(s.statsTick)); err != nil {
		return fmt.Errorf("register stats job: %w", err)
	}

	sched.Start()
	s.state = StateInitialized
	return nil
}

func (s *Supervisor) statsTick() {
	snap := s.monitor.Snapshot()
	var batLevel *int
	if bat, ok := snap.Sensors[model.SensorBattery]; ok {
		batLevel = bat.BatteryLevel
	}
	s.bus.BroadcastStats(bus.StatsMessage{
		EegSps:   snap.Sensors[model.SensorEEG].SamplesPerSecond1s,
		PpgSps:   snap.Sensors[model.SensorPPG].SamplesPerSecond1s,
		AccSps:   snap.Sensors[model.SensorACC].SamplesPerSecond1s,
		BatLevel: batLevel,
	})
}

// Scan discovers advertising devices for timeoutSeconds (spec.md §4.J).
func (s *Supervisor) Scan(timeoutSeconds float64) ([]model.DeviceDescriptor, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = s.cfg.ScanTimeoutS
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds*float64(time.Second))+time.Second)
	defer cancel()

	devices, err := s.transport.Scan(ctx, time.Duration(timeoutSeconds*float64(time.Second)))
	if err != nil {
		return nil, err
	}
	s.bus.BroadcastEvent(bus.EventScanResult, devices)
	return devices, nil
}

// Connect dials address and starts the four decoder+broadcast tasks
// feeding the ring buffers and stream bus (spec.md §4.J).
func (s *Supervisor) Connect(address string) error {
	s.mu.Lock()
	if s.device != nil {
		s.mu.Unlock()
		return errs.ErrAlreadyConnected
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ConnectTimeoutS*float64(time.Second)))
	defer cancel()

	if err := s.transport.Connect(ctx, address); err != nil {
		return err
	}

	desc := model.DeviceDescriptor{Address: address, LastSeen: time.Now()}
	if existing, ok := s.registry.Get(address); ok {
		desc.Name = existing.Name
	}
	s.registry.Register(desc)

	s.mu.Lock()
	s.device = &desc
	s.mu.Unlock()

	s.bus.BroadcastEvent(bus.EventDeviceConnected, desc)
	return nil
}

// Disconnect tears down the active connection and stops streaming tasks
// if they were running.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	if s.device == nil {
		s.mu.Unlock()
		return errs.ErrNotConnected
	}
	s.mu.Unlock()

	s.stopStreamingTasks()

	if err := s.transport.Disconnect(); err != nil {
		return err
	}

	s.mu.Lock()
	s.device = nil
	s.mu.Unlock()

	s.bus.BroadcastEvent(bus.EventDeviceDisconnected, nil)
	return nil
}

// Status returns the current connection/streaming state and rolling
// per-sensor sample rates, caching the result for up to one second so
// concurrent REST/WS pollers don't hammer the transport (spec.md §4.K).
func (s *Supervisor) Status() (StatusInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastStatusAt) < time.Second && s.lastStatusAt != (time.Time{}) {
		return s.lastStatus, nil
	}

	info := StatusInfo{
		Rates: make(map[model.SensorKind]float64),
	}
	if s.device != nil {
		info.Connected = true
		info.Address = s.device.Address
	}
	info.Streaming = s.state == StateStreaming

	snap := s.monitor.Snapshot()
	for k, stat := range snap.Sensors {
		info.Rates[k] = stat.SamplesPerSecond1s
		if k == model.SensorBattery {
			info.Battery = stat.BatteryLevel
		}
	}

	s.lastStatus = info
	s.lastStatusAt = time.Now()
	return info, nil
}

// StartStreaming begins the decode/process/broadcast tasks for all four
// sensors. Idempotent: calling it while already streaming returns
// alreadyRunning=true instead of an error (spec.md §4.I).
func (s *Supervisor) StartStreaming() (alreadyRunning bool, err error) {
	s.mu.Lock()
	if s.device == nil {
		s.mu.Unlock()
		return false, errs.ErrNotConnected
	}
	if s.state == StateStreaming {
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	if err := s.transport.MarkStreaming(); err != nil {
		return false, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.state = StateStreaming
	s.mu.Unlock()

	s.startTasks(ctx)
	s.bus.BroadcastEvent(bus.EventStreamStarted, nil)
	return false, nil
}

// StopStreaming halts the decode/process tasks. Idempotent: calling it
// while already stopped returns alreadyStopped=true.
func (s *Supervisor) StopStreaming() (alreadyStopped bool, err error) {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	s.stopStreamingTasks()
	s.transport.MarkConnected()
	s.bus.BroadcastEvent(bus.EventStreamStopped, nil)
	return false, nil
}

func (s *Supervisor) stopStreamingTasks() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	if s.state == StateStreaming {
		s.state = StateInitialized
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// StartRecording begins a new session, failing fast if no device is
// currently streaming (spec.md §4.G).
func (s *Supervisor) StartRecording(name string) (*model.Session, error) {
	s.mu.Lock()
	streaming := s.state == StateStreaming
	s.mu.Unlock()

	if !streaming {
		return nil, errs.ErrNotConnected
	}

	format := model.DataFormat(s.cfg.DataFormat)
	session, err := s.recorder.Start(name, format)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.recordStart = time.Now()
	s.mu.Unlock()

	return session, nil
}

// StopRecording finalizes the active session.
func (s *Supervisor) StopRecording() (*model.Session, error) {
	session, err := s.recorder.Stop()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastSession = session
	s.mu.Unlock()
	return session, nil
}

// ExportSession zips the most recently finished recording session
// directory for hand-off to the external REST layer's download endpoint
// (spec.md §4.K export supplement).
func (s *Supervisor) ExportSession() (string, error) {
	s.mu.Lock()
	session := s.lastSession
	s.mu.Unlock()

	if session == nil {
		return "", errs.ErrNotRecording
	}
	return recorder.Export(session.DirectoryPath)
}

// HealthCheck returns the current streaming-monitor snapshot.
func (s *Supervisor) HealthCheck() (monitor.Snapshot, error) {
	return s.monitor.Snapshot(), nil
}

// handleDeviceLost is the transport's unsolicited-disconnect callback
// (spec.md §4.B). It stops the streaming tasks, notifies the bus, notes
// the reconnect in any active recording session, and attempts up to
// maxReconnectAttempts reconnects with jittered back-off before giving
// up and leaving the device disconnected (spec.md §7).
func (s *Supervisor) handleDeviceLost(reason error) {
	log.Printf("[supervisor] device lost: %v", reason)

	s.mu.Lock()
	addr := ""
	if s.device != nil {
		addr = s.device.Address
	}
	s.mu.Unlock()

	s.stopStreamingTasks()
	s.bus.BroadcastEvent(bus.EventDeviceDisconnected, nil)

	if s.recorder.IsRecording() {
		s.mu.Lock()
		at := time.Since(s.recordStart).Seconds()
		s.mu.Unlock()
		if err := s.recorder.NoteReconnect(at); err != nil {
			log.Printf("[supervisor] note reconnect: %v", err)
		}
	}

	if addr == "" {
		return
	}

	s.mu.Lock()
	s.device = nil
	s.mu.Unlock()

	go s.attemptReconnect(addr)
}

func (s *Supervisor) attemptReconnect(address string) {
	s.mu.Lock()
	reconnect := s.reconnect
	s.mu.Unlock()

	backoff := reconnectBackoffMin
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		time.Sleep(backoff + time.Duration(rand.Int63n(int64(250*time.Millisecond))))

		if err := reconnect(address); err == nil {
			log.Printf("[supervisor] reconnected to %s after %d attempt(s)", address, attempt)
			if s.recorder.IsRecording() {
				s.recorder.ResolveReconnect(time.Since(s.recordStart).Seconds())
			}
			if _, err := s.StartStreaming(); err != nil {
				log.Printf("[supervisor] resume streaming after reconnect: %v", err)
			}
			return
		}

		backoff *= 2
		if backoff > reconnectBackoffMax {
			backoff = reconnectBackoffMax
		}
	}
	log.Printf("[supervisor] giving up reconnecting to %s after %d attempts", address, maxReconnectAttempts)
}

// Shutdown moves the supervisor to Stopping, announces stream_stopped,
// cancels the streaming tasks and waits for them to return, finalizes
// any active recording, disconnects the transport and stops the
// scheduler, in that order. It does not stop the bus from accepting new
// subscriptions and does not close subscriber sockets; ctx is not
// consulted.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateStopping
	s.mu.Unlock()

	s.bus.BroadcastEvent(bus.EventStreamStopped, nil)

	s.stopStreamingTasks()

	if s.recorder.IsRecording() {
		if _, err := s.recorder.Stop(); err != nil {
			log.Printf("[supervisor] finalize recording on shutdown: %v", err)
		}
	}

	if s.transport.State() != transport.StateIdle {
		if err := s.transport.Disconnect(); err != nil {
			log.Printf("[supervisor] disconnect on shutdown: %v", err)
		}
	}

	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			log.Printf("[supervisor] scheduler shutdown: %v", err)
		}
	}

	return nil
}
