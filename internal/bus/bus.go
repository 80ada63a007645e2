package bus

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

// CommandHandler executes the control-surface verbs a WebSocket client
// may invoke (spec.md §4.J); internal/control provides the concrete
// implementation so this package stays free of device/session concerns.
type CommandHandler interface {
	Scan(timeoutSeconds float64) (interface{}, error)
	Connect(address string) (interface{}, error)
	Disconnect() (interface{}, error)
	Status() (interface{}, error)
	StartStreaming() (interface{}, error)
	StopStreaming() (interface{}, error)
	StartRecording(name string) (interface{}, error)
	StopRecording() (interface{}, error)
	HealthCheck() (interface{}, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Bus is the WebSocket stream server: it owns every connected
// subscriber, fans out raw/processed frames and events with per-sensor
// ordering, and serializes client commands through CommandHandler
// (spec.md §4.F).
type Bus struct {
	handler    CommandHandler
	queueDepth int

	mu   sync.RWMutex
	subs map[string]*subscription
}

// New builds a Bus. handler may be nil until the supervisor wires one in
// (commands then fail with a protocol error rather than panicking).
func New(handler CommandHandler, queueDepth int) *Bus {
	return &Bus{
		handler:    handler,
		queueDepth: queueDepth,
		subs:       make(map[string]*subscription),
	}
}

// SetHandler lets the supervisor attach the control surface after the
// bus has already started accepting connections.
func (b *Bus) SetHandler(handler CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// ServeHTTP upgrades the connection and runs its read/write pumps until
// it disconnects.
func (b *Bus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[bus] upgrade failed: %v", err)
		return
	}

	sub := newSubscription(conn, b.queueDepth)
	b.addSubscriber(sub)
	defer b.removeSubscriber(sub)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go sub.writePump()
	b.readLoop(sub)
}

func (b *Bus) addSubscriber(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.id] = sub
}

func (b *Bus) removeSubscriber(sub *subscription) {
	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()
	sub.close()
}

// ClientCount returns the number currently-connected subscribers.
func (b *Bus) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) readLoop(sub *subscription) {
	for {
		_, raw, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		b.handleCommand(sub, raw)
	}
}

func (b *Bus) handleCommand(sub *subscription, raw []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		sub.enqueue(kindImportant, ErrorMessage{Type: TypeError, Code: "bad_request"})
		return
	}

	switch cmd.Command {
	case "subscribe":
		sub.setFilters(cmd.Channels)
		sub.enqueue(kindImportant, SubscribedMessage{Type: TypeSubscribed, Channels: cmd.Channels})
		return
	}

	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()

	if handler == nil {
		sub.enqueue(kindImportant, ErrorMessage{Type: TypeError, Code: "not_ready"})
		return
	}

	result, err := dispatch(handler, cmd)
	if err != nil {
		sub.enqueue(kindImportant, EventMessage{Type: TypeEvent, EventType: EventError, Data: err.Error()})
		return
	}
	sub.enqueue(kindImportant, EventMessage{Type: TypeEvent, EventType: commandEventType(cmd.Command), Data: result})
}

func dispatch(h CommandHandler, cmd ClientCommand) (interface{}, error) {
	switch cmd.Command {
	case "scan":
		timeout := cmd.Timeout
		if timeout <= 0 {
			timeout = 10
		}
		return h.Scan(timeout)
	case "connect":
		return h.Connect(cmd.Address)
	case "disconnect":
		return h.Disconnect()
	case "status":
		return h.Status()
	case "start_streaming":
		return h.StartStreaming()
	case "stop_streaming":
		return h.StopStreaming()
	case "start_recording":
		return h.StartRecording(cmd.Name)
	case "stop_recording":
		return h.StopRecording()
	case "health_check":
		return h.HealthCheck()
	default:
		return nil, errUnknownCommand(cmd.Command)
	}
}

func commandEventType(command string) EventType {
	switch command {
	case "scan":
		return EventScanResult
	case "connect":
		return EventDeviceConnected
	case "disconnect":
		return EventDeviceDisconnected
	case "start_streaming":
		return EventStreamStarted
	case "stop_streaming":
		return EventStreamStopped
	default:
		return EventDeviceInfo
	}
}

// BroadcastRaw fans raw decoded samples out to every subscriber whose
// filter matches sensor/raw, preserving the order decode produced them
// in (spec.md §4.F per-sensor ordering guarantee: calls for the same
// sensor must be made from a single goroutine by the caller).
func (b *Bus) BroadcastRaw(sensor model.SensorKind, count int, timestamp float64, data interface{}) {
	b.broadcast(sensor, model.ChannelRaw, kindRaw, RawDataMessage{
		Type:       TypeRawData,
		SensorType: sensor,
		Timestamp:  timestamp,
		Count:      count,
		Data:       data,
	})
}

// BroadcastProcessed fans a DSP frame out to every matching subscriber.
func (b *Bus) BroadcastProcessed(sensor model.SensorKind, timestamp float64, data interface{}) {
	b.broadcast(sensor, model.ChannelProcessed, kindImportant, ProcessedDataMessage{
		Type:       TypeProcessedData,
		SensorType: sensor,
		Timestamp:  timestamp,
		Data:       data,
	})
}

// BroadcastEvent fans a lifecycle event out to every connected
// subscriber regardless of channel filter.
func (b *Bus) BroadcastEvent(eventType EventType, data interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.enqueue(kindImportant, EventMessage{Type: TypeEvent, EventType: eventType, Data: data})
	}
}

// BroadcastStats fans the 1 Hz stats summary out to every subscriber.
func (b *Bus) BroadcastStats(msg StatsMessage) {
	msg.Type = TypeStats

	b.mu.RLock()
	defer b.mu.RUnlock()
	msg.ClientsConnected = len(b.subs)
	var dropped uint64
	for _, sub := range b.subs {
		dropped += sub.droppedTotal()
	}
	msg.DroppedTotal = dropped

	for _, sub := range b.subs {
		sub.enqueue(kindImportant, msg)
	}
}

func (b *Bus) broadcast(sensor model.SensorKind, channel model.ChannelKind, kind outboundKind, msg interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.wants(sensor, channel) {
			continue
		}
		if sub.enqueue(kind, msg) {
			b.evict(sub)
		}
	}
}

// evict disconnects a subscriber whose queue has stayed saturated past
// the slow-consumer grace period (spec.md §4.F), notifying it with
// code "slow_consumer" before the connection is torn down. Handed off
// to the write pump rather than writing here directly, so it never
// races writePump's own conn.WriteMessage calls.
func (b *Bus) evict(sub *subscription) {
	log.Printf("[bus] %s: evicting %s, dropped=%d", errs.ErrSlowConsumer, sub.id, sub.droppedTotal())
	sub.evict("slow_consumer")
}

type errUnknownCommand string

func (e errUnknownCommand) Error() string { return "unknown command: " + string(e) }
