// Package bus implements the WebSocket subscription server: per-sensor
// broadcast ordering, per-subscriber back-pressure and the client
// command protocol (spec.md §4.F).
package bus

import "github.com/looxidlabs/link-band-core/internal/model"

// Outbound message type discriminators.
const (
	TypeSubscribed    = "subscribed"
	TypeError         = "error"
	TypeRawData       = "raw_data"
	TypeProcessedData = "processed_data"
	TypeEvent         = "event"
	TypeStats         = "stats"
)

// EventType enumerates the event_type values an "event" message may carry.
type EventType string

const (
	EventDeviceConnected    EventType = "device_connected"
	EventDeviceDisconnected EventType = "device_disconnected"
	EventDeviceInfo         EventType = "device_info"
	EventScanResult         EventType = "scan_result"
	EventStreamStarted      EventType = "stream_started"
	EventStreamStopped      EventType = "stream_stopped"
	EventError              EventType = "error"
)

// RawDataMessage fans out exactly the samples one decoder call produced.
type RawDataMessage struct {
	Type       string        `json:"type"`
	SensorType model.SensorKind `json:"sensor_type"`
	Timestamp  float64       `json:"timestamp"`
	Count      int           `json:"count"`
	Data       interface{}   `json:"data"`
}

// ProcessedDataMessage carries one sensor's DSP output frame.
type ProcessedDataMessage struct {
	Type       string           `json:"type"`
	SensorType model.SensorKind `json:"sensor_type"`
	Timestamp  float64          `json:"timestamp"`
	Data       interface{}      `json:"data"`
}

// EventMessage carries a discrete lifecycle or error notification.
type EventMessage struct {
	Type      string      `json:"type"`
	EventType EventType   `json:"event_type"`
	Data      interface{} `json:"data"`
}

// StatsMessage is the 1 Hz throughput/health summary.
type StatsMessage struct {
	Type             string  `json:"type"`
	EegSps           float64 `json:"eeg_sps"`
	PpgSps           float64 `json:"ppg_sps"`
	AccSps           float64 `json:"acc_sps"`
	BatLevel         *int    `json:"bat_level"`
	ClientsConnected int     `json:"clients_connected"`
	DroppedTotal     uint64  `json:"dropped_total"`
}

// SubscribedMessage acknowledges a subscribe command.
type SubscribedMessage struct {
	Type     string                 `json:"type"`
	Channels []model.ChannelFilter  `json:"channels"`
}

// ErrorMessage reports a protocol-level failure.
type ErrorMessage struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// ClientCommand is the generic shape of every client->server message.
type ClientCommand struct {
	Command  string                `json:"command"`
	Channels []model.ChannelFilter `json:"channels,omitempty"`
	Address  string                `json:"address,omitempty"`
	Timeout  float64               `json:"timeout,omitempty"`
	Name     string                `json:"name,omitempty"`
}
