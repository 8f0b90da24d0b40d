package view

import "github.com/rento-fleet/fleet-tracker/internal/models"

// Event is an inbound message to the view-state machine. Events come
// from three places: the caller (selection, reset), the dispatcher
// (marker updates), and the map surface (gestures, settles).
type Event interface {
	isEvent()
}

// VehicleSelected focuses the camera on a vehicle. Marker carries the
// vehicle's current position when one is known; nil means the vehicle is
// still awaited ("searching").
type VehicleSelected struct {
	VehicleID string
	Marker    *models.TrackPoint
}

// MarkerUpdated reports that a vehicle's marker moved.
type MarkerUpdated struct {
	VehicleID string
	Point     models.TrackPoint
}

// UserDragStart is a raw drag gesture from the map surface.
type UserDragStart struct{}

// UserZoomStart is a raw zoom gesture from the map surface.
type UserZoomStart struct{}

// ViewSettled reports the camera position after any movement completes.
type ViewSettled struct {
	Center models.TrackPoint
	Zoom   int
}

// ResetInteraction clears the override-suppression state so programmatic
// control can resume, e.g. when the caller picks a new vehicle from the
// list.
type ResetInteraction struct{}

// GraceElapsed fires when the focus grace period ends without a marker
// for the focused vehicle.
type GraceElapsed struct{}

// FocusAddressResolved carries an asynchronously resolved street address
// for the focused vehicle's position.
type FocusAddressResolved struct {
	VehicleID string
	Address   string
}

func (VehicleSelected) isEvent()      {}
func (MarkerUpdated) isEvent()        {}
func (UserDragStart) isEvent()        {}
func (UserZoomStart) isEvent()        {}
func (ViewSettled) isEvent()          {}
func (ResetInteraction) isEvent()     {}
func (GraceElapsed) isEvent()         {}
func (FocusAddressResolved) isEvent() {}

// Command is an outbound instruction for the render adapter, produced by
// a state transition.
type Command interface {
	isCommand()
}

// PanTo pans the camera to a point.
type PanTo struct {
	Point models.TrackPoint
}

// SetNoData toggles the focused-vehicle "no data" indication.
type SetNoData struct {
	Visible bool
}

// SetFocusAddress updates the focused vehicle's displayed address.
type SetFocusAddress struct {
	Address string
}

func (PanTo) isCommand()           {}
func (SetNoData) isCommand()       {}
func (SetFocusAddress) isCommand() {}
