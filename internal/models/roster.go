package models

import "time"

// RosterEntry is one row of the active-vehicle list endpoint: a vehicle
// presumed in motion, with its display label and trip metadata.
type RosterEntry struct {
	VehicleID string    `json:"vehicleId"`
	MDN       string    `json:"mdn,omitempty"`
	Label     string    `json:"label"`
	TripID    string    `json:"tripId,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty"`
}

// ID returns the vehicle identifier, preferring the explicit id over the
// legacy mdn field some deployments still send.
func (r RosterEntry) ID() string {
	if r.VehicleID != "" {
		return r.VehicleID
	}
	return r.MDN
}

// RosterVehicle is a merged entry of the "currently visible" set: the
// union of roster rows and live markers. Pending means the roster lists
// the vehicle but no report has arrived yet.
type RosterVehicle struct {
	VehicleID string `json:"vehicleId"`
	Label     string `json:"label,omitempty"`
	TripID    string `json:"tripId,omitempty"`
	Pending   bool   `json:"pending"`
}
