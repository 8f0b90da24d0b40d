package models

import "time"

// PositionReport is one vehicle position update taken off the stream.
// Consumed exactly once by the dispatcher.
type PositionReport struct {
	VehicleID  string    `json:"vehicleId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// TrackPoint is a single immutable coordinate on a vehicle's path.
type TrackPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VehicleMarker is the single most recent known position of a vehicle,
// as rendered on the map. Label is a display hint (for example the plate
// number) resolved from the active-vehicle roster.
type VehicleMarker struct {
	VehicleID string  `json:"vehicleId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// Point returns the marker's coordinates as a TrackPoint.
func (m VehicleMarker) Point() TrackPoint {
	return TrackPoint{Latitude: m.Latitude, Longitude: m.Longitude}
}

// StreamStatus describes the position stream connection as data; the
// render boundary displays it, nothing treats it as an error.
type StreamStatus string

const (
	StreamUnauthenticated StreamStatus = "unauthenticated"
	StreamConnecting      StreamStatus = "connecting"
	StreamSubscribed      StreamStatus = "subscribed"
	StreamReconnecting    StreamStatus = "reconnecting"
	StreamStopped         StreamStatus = "stopped"
)
