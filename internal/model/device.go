package model

import "time"

// DeviceDescriptor is a previously paired (or discovered) Link Band device.
type DeviceDescriptor struct {
	Address  string    `json:"address"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"last_seen"`
}
