package model

import "time"

// DataFormat selects the on-disk encoding for a recording session.
type DataFormat string

const (
	FormatJSONLines DataFormat = "json_lines"
	FormatCSV       DataFormat = "csv"
	FormatParquet   DataFormat = "parquet"
)

// SessionFile describes one file written as part of a session.
type SessionFile struct {
	Path    string      `json:"path"`
	Sensor  SensorKind  `json:"sensor"`
	Channel ChannelKind `json:"channel"`
	Records int         `json:"records"`
	Bytes   int64       `json:"bytes"`
}

// Reconnect records a DeviceLost/reconnect event observed during a session.
type Reconnect struct {
	At           float64 `json:"at"`
	ResumedAt    float64 `json:"resumed_at,omitempty"`
	FileSuffix   int     `json:"file_suffix"`
}

// Session is the manifest of one recording, mirrored to meta.json.
type Session struct {
	ID           string       `json:"id"`
	SessionName  string       `json:"session_name,omitempty"`
	StartedAt    time.Time    `json:"start_time"`
	EndedAt      *time.Time   `json:"end_time,omitempty"`
	DirectoryPath string      `json:"directory_path"`
	DataFormat   DataFormat   `json:"data_format"`
	Files        []SessionFile `json:"files"`
	Errors       []string     `json:"errors,omitempty"`
	Reconnects   []Reconnect  `json:"reconnects,omitempty"`
	Stats        SessionStats `json:"stats"`
}

// SessionStats is a summary rollup attached at stop_recording, folded
// back from the original implementation's per-type file counts.
type SessionStats struct {
	TotalFiles int            `json:"total_files"`
	TypeCount  map[string]int `json:"type_count"`
}
