package model

// ChannelFilter is one (sensor, raw|processed) pair a client subscribed to.
type ChannelFilter struct {
	Sensor  SensorKind  `json:"sensor"`
	Kind    ChannelKind `json:"kind"`
}

// SubscriptionInfo is the externally visible shape of a live subscription,
// used by stats/health snapshots.
type SubscriptionInfo struct {
	ClientID     string          `json:"client_id"`
	Channels     []ChannelFilter `json:"channels"`
	QueueDepth   int             `json:"queue_depth"`
	QueueBacklog int             `json:"queue_backlog"`
	Dropped      uint64          `json:"dropped"`
}
