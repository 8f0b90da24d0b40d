package models

import "time"

// ViewState is the current camera position of the map.
type ViewState struct {
	Center TrackPoint `json:"center"`
	Zoom   int        `json:"zoom"`
}

// FocusState records which vehicle, if any, the camera is following.
// An empty VehicleID means free-roam.
type FocusState struct {
	VehicleID string    `json:"vehicleId,omitempty"`
	EnteredAt time.Time `json:"enteredAt,omitempty"`
}

// Focused reports whether a follow target is set.
func (f FocusState) Focused() bool {
	return f.VehicleID != ""
}
