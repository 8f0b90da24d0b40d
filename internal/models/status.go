package models

import "time"

// StatusBeacon is the periodic runtime snapshot published by the status
// service: stream health plus pipeline and process gauges.
type StatusBeacon struct {
	Timestamp     time.Time    `json:"timestamp"`
	SessionID     string       `json:"sessionId"`
	Stream        StreamStatus `json:"stream"`
	QueueDepth    int          `json:"queueDepth"`
	Vehicles      int          `json:"vehicles"`
	Paths         int          `json:"paths"`
	DroppedFrames uint64       `json:"droppedFrames"`
	CPUPercent    float64      `json:"cpuPercent"`
	MemoryRSS     uint64       `json:"memoryRss"`
}
