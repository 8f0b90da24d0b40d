package view_test

import (
	"testing"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/view"
	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock so no test sleeps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

const (
	cooldown = 300 * time.Millisecond
	grace    = 1 * time.Second
)

func newTestMachine(clock *fakeClock) *view.Machine {
	return view.NewMachine(clock, cooldown, grace, models.ViewState{
		Center: models.TrackPoint{Latitude: 37.5665, Longitude: 126.9780},
		Zoom:   12,
	})
}

func panCommands(cmds []view.Command) []view.PanTo {
	var pans []view.PanTo
	for _, c := range cmds {
		if pan, ok := c.(view.PanTo); ok {
			pans = append(pans, pan)
		}
	}
	return pans
}

// TestMachine_SelectWithMarker_PansAndFocuses verifies the
// FREE_ROAM -> FOCUSED transition with a known marker.
func TestMachine_SelectWithMarker_PansAndFocuses(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	marker := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	cmds := machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &marker})

	assert.Equal(t, view.Focused, machine.State())
	assert.Equal(t, "v1", machine.Focus().VehicleID)
	pans := panCommands(cmds)
	assert.Len(t, pans, 1)
	assert.Equal(t, marker, pans[0].Point)
}

// TestMachine_GestureWithinCooldown_Absorbed verifies that the camera
// event fed back by our own pan does not drop focus.
func TestMachine_GestureWithinCooldown_Absorbed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	marker := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &marker})

	clock.Advance(100 * time.Millisecond)
	machine.Handle(view.UserDragStart{})

	assert.Equal(t, view.Focused, machine.State())
	assert.Equal(t, "v1", machine.Focus().VehicleID)
}

// TestMachine_GestureAfterCooldown_DropsFocus verifies the user
// override: focus clears immediately and the camera is not panned back.
func TestMachine_GestureAfterCooldown_DropsFocus(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	marker := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &marker})

	clock.Advance(500 * time.Millisecond)
	cmds := machine.Handle(view.UserDragStart{})

	assert.Equal(t, view.FreeRoam, machine.State())
	assert.False(t, machine.Focus().Focused())
	assert.Empty(t, panCommands(cmds))

	// A later update for the former target must not recapture the camera.
	cmds = machine.Handle(view.MarkerUpdated{VehicleID: "v1", Point: marker})
	assert.Empty(t, panCommands(cmds))
	assert.Equal(t, view.FreeRoam, machine.State())
}

// TestMachine_FocusedMarkerUpdate_SelfLoop verifies the periodic
// follow-pan while focused, re-arming the guard each time.
func TestMachine_FocusedMarkerUpdate_SelfLoop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	start := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &start})

	clock.Advance(2 * time.Second)
	next := models.TrackPoint{Latitude: 37.51, Longitude: 127.01}
	cmds := machine.Handle(view.MarkerUpdated{VehicleID: "v1", Point: next})

	pans := panCommands(cmds)
	assert.Len(t, pans, 1)
	assert.Equal(t, next, pans[0].Point)

	// The pan just re-armed the guard, so its feedback is absorbed.
	clock.Advance(100 * time.Millisecond)
	machine.Handle(view.UserZoomStart{})
	assert.Equal(t, view.Focused, machine.State())
}

// TestMachine_OtherVehicleUpdate_Ignored verifies that updates for
// non-focused vehicles never move the camera.
func TestMachine_OtherVehicleUpdate_Ignored(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	marker := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &marker})

	cmds := machine.Handle(view.MarkerUpdated{VehicleID: "v2", Point: models.TrackPoint{Latitude: 1, Longitude: 2}})
	assert.Empty(t, cmds)
}

// TestMachine_FocusWithoutMarker_GraceThenNoData verifies the searching
// state: no error, a "no data" hint after the grace window, and a
// clean clear once the first marker arrives.
func TestMachine_FocusWithoutMarker_GraceThenNoData(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	cmds := machine.Handle(view.VehicleSelected{VehicleID: "v3"})
	assert.Equal(t, view.Focused, machine.State())
	assert.Empty(t, panCommands(cmds))
	assert.False(t, machine.NoData())
	assert.Equal(t, grace, machine.GraceWait())

	// Before the grace deadline nothing is shown, avoiding flicker.
	clock.Advance(500 * time.Millisecond)
	cmds = machine.Handle(view.GraceElapsed{})
	assert.Empty(t, cmds)
	assert.False(t, machine.NoData())

	clock.Advance(600 * time.Millisecond)
	cmds = machine.Handle(view.GraceElapsed{})
	assert.Equal(t, []view.Command{view.SetNoData{Visible: true}}, cmds)
	assert.True(t, machine.NoData())

	// First marker for the target clears the hint and pans.
	point := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	cmds = machine.Handle(view.MarkerUpdated{VehicleID: "v3", Point: point})
	assert.Contains(t, cmds, view.SetNoData{Visible: false})
	assert.Len(t, panCommands(cmds), 1)
	assert.False(t, machine.NoData())
}

// TestMachine_ResetInteraction_ClearsGuard verifies that the explicit
// reset signal re-enables override detection immediately.
func TestMachine_ResetInteraction_ClearsGuard(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	marker := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &marker})

	// Guard is armed; reset clears it, so the next gesture overrides.
	machine.Handle(view.ResetInteraction{})
	machine.Handle(view.UserDragStart{})
	assert.Equal(t, view.FreeRoam, machine.State())
}

// TestMachine_ViewSettled_TracksCamera verifies that settled camera
// positions are recorded regardless of state.
func TestMachine_ViewSettled_TracksCamera(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	machine.Handle(view.ViewSettled{Center: models.TrackPoint{Latitude: 35.0, Longitude: 129.0}, Zoom: 15})

	assert.Equal(t, 15, machine.View().Zoom)
	assert.Equal(t, 35.0, machine.View().Center.Latitude)
}

// TestMachine_AddressResolved_OnlyForCurrentFocus verifies stale
// geocode results are discarded after focus changed.
func TestMachine_AddressResolved_OnlyForCurrentFocus(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	machine := newTestMachine(clock)

	marker := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}
	machine.Handle(view.VehicleSelected{VehicleID: "v1", Marker: &marker})

	cmds := machine.Handle(view.FocusAddressResolved{VehicleID: "v1", Address: "서울특별시 중구"})
	assert.Equal(t, []view.Command{view.SetFocusAddress{Address: "서울특별시 중구"}}, cmds)

	cmds = machine.Handle(view.FocusAddressResolved{VehicleID: "v9", Address: "elsewhere"})
	assert.Empty(t, cmds)
}
