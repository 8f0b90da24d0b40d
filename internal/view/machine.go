package view

import (
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
)

// State is the camera ownership mode.
type State int

const (
	// FreeRoam leaves the camera under user control.
	FreeRoam State = iota
	// Focused follows one vehicle. A user gesture outside the
	// programmatic-move cooldown drops back to FreeRoam through a
	// transient override that collapses synchronously.
	Focused
)

// Machine is the view-state transition core: a function over
// (state, event) -> (state, commands). It owns no timers and no map
// handle, which keeps it testable against a fake clock. The surrounding
// Reconciler service schedules the grace deadline it exposes.
//
// Camera movement is ambiguous: the same low-level event can come from
// code or from a finger. The machine resolves this with an explicit
// guard deadline armed before every programmatic move, rather than
// inferring intent from event timing.
type Machine struct {
	clock    Clock
	cooldown time.Duration
	grace    time.Duration

	state         State
	focus         models.FocusState
	view          models.ViewState
	guardUntil    time.Time
	graceDeadline time.Time
	noData        bool
}

// NewMachine creates a machine in FreeRoam at the given default camera.
func NewMachine(clock Clock, cooldown, grace time.Duration, defaultView models.ViewState) *Machine {
	return &Machine{
		clock:    clock,
		cooldown: cooldown,
		grace:    grace,
		state:    FreeRoam,
		view:     defaultView,
	}
}

// Handle applies one event and returns the commands the render adapter
// must execute.
func (m *Machine) Handle(event Event) []Command {
	now := m.clock.Now()

	switch e := event.(type) {
	case VehicleSelected:
		return m.handleSelected(e, now)
	case MarkerUpdated:
		return m.handleMarkerUpdated(e, now)
	case UserDragStart, UserZoomStart:
		return m.handleUserGesture(now)
	case ViewSettled:
		m.view = models.ViewState{Center: e.Center, Zoom: e.Zoom}
		return nil
	case ResetInteraction:
		m.guardUntil = time.Time{}
		return nil
	case GraceElapsed:
		return m.handleGraceElapsed(now)
	case FocusAddressResolved:
		if m.state == Focused && e.VehicleID == m.focus.VehicleID {
			return []Command{SetFocusAddress{Address: e.Address}}
		}
		return nil
	}
	return nil
}

func (m *Machine) handleSelected(e VehicleSelected, now time.Time) []Command {
	var cmds []Command
	if m.noData {
		m.noData = false
		cmds = append(cmds, SetNoData{Visible: false})
	}

	m.state = Focused
	m.focus = models.FocusState{VehicleID: e.VehicleID, EnteredAt: now}
	m.guardUntil = time.Time{}
	m.graceDeadline = time.Time{}
	cmds = append(cmds, SetFocusAddress{Address: ""})

	if e.Marker != nil {
		// Arm the guard before the pan so the resulting camera event is
		// not misread as a user gesture.
		m.guardUntil = now.Add(m.cooldown)
		cmds = append(cmds, PanTo{Point: *e.Marker})
	} else {
		// Searching: valid transient state, no marker yet. The "no data"
		// indication is held back for the grace window to avoid flicker.
		m.graceDeadline = now.Add(m.grace)
	}
	return cmds
}

func (m *Machine) handleMarkerUpdated(e MarkerUpdated, now time.Time) []Command {
	if m.state != Focused || e.VehicleID != m.focus.VehicleID {
		return nil
	}

	var cmds []Command
	if m.noData {
		m.noData = false
		cmds = append(cmds, SetNoData{Visible: false})
	}
	m.graceDeadline = time.Time{}
	m.guardUntil = now.Add(m.cooldown)
	cmds = append(cmds, PanTo{Point: e.Point})
	return cmds
}

func (m *Machine) handleUserGesture(now time.Time) []Command {
	if m.state != Focused {
		return nil
	}
	if now.Before(m.guardUntil) {
		// Feedback from our own pan; absorb it.
		return nil
	}

	// User override: drop focus immediately and keep the camera where
	// the user put it. The transient override state collapses here.
	m.state = FreeRoam
	m.focus = models.FocusState{}
	m.graceDeadline = time.Time{}
	if m.noData {
		m.noData = false
		return []Command{SetNoData{Visible: false}, SetFocusAddress{Address: ""}}
	}
	return []Command{SetFocusAddress{Address: ""}}
}

func (m *Machine) handleGraceElapsed(now time.Time) []Command {
	if m.state != Focused || m.graceDeadline.IsZero() || now.Before(m.graceDeadline) {
		return nil
	}
	m.graceDeadline = time.Time{}
	m.noData = true
	return []Command{SetNoData{Visible: true}}
}

// State returns the current camera ownership mode.
func (m *Machine) State() State {
	return m.state
}

// Focus returns the current follow target, empty in FreeRoam.
func (m *Machine) Focus() models.FocusState {
	return m.focus
}

// View returns the last settled camera position.
func (m *Machine) View() models.ViewState {
	return m.view
}

// NoData reports whether the "no data" indication is currently shown.
func (m *Machine) NoData() bool {
	return m.noData
}

// GraceWait returns how long until the pending grace deadline, or a
// negative duration when none is armed.
func (m *Machine) GraceWait() time.Duration {
	if m.graceDeadline.IsZero() {
		return -1
	}
	return m.graceDeadline.Sub(m.clock.Now())
}
