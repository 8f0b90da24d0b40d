// Package render declares the capability boundary to the map surface.
// The tracker core drives a map through Adapter and receives raw user
// interaction through InteractionSink; it never renders anything itself.
package render

import "github.com/rento-fleet/fleet-tracker/internal/models"

// Adapter is the outbound capability of the external map renderer.
type Adapter interface {
	// SetMarkers replaces the rendered marker set.
	SetMarkers(markers map[string]models.VehicleMarker)

	// SetPaths replaces the rendered polyline set.
	SetPaths(paths map[string][]models.TrackPoint)

	// PanTo moves the camera to a point, preserving zoom.
	PanTo(point models.TrackPoint)

	// SetViewState moves the camera to an explicit center and zoom.
	SetViewState(view models.ViewState)

	// SetNoData toggles the "no data for focused vehicle" indication.
	SetNoData(visible bool)

	// SetFocusAddress updates the resolved street address shown for the
	// focused vehicle. Empty clears it.
	SetFocusAddress(address string)
}

// InteractionSink receives the renderer's raw user events. Drag and zoom
// starts fire before the camera settles; ViewSettled fires after any
// camera movement, user- or program-initiated.
type InteractionSink interface {
	UserDragStart()
	UserZoomStart()
	ViewSettled(center models.TrackPoint, zoom int)
}

// NopAdapter discards every call. Used for headless runs and as an
// embedding base in tests.
type NopAdapter struct{}

func (NopAdapter) SetMarkers(map[string]models.VehicleMarker) {}
func (NopAdapter) SetPaths(map[string][]models.TrackPoint)    {}
func (NopAdapter) PanTo(models.TrackPoint)                    {}
func (NopAdapter) SetViewState(models.ViewState)              {}
func (NopAdapter) SetNoData(bool)                             {}
func (NopAdapter) SetFocusAddress(string)                     {}
