package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/render"
	"github.com/rs/zerolog"
)

// MarkerSource looks up the live marker for a vehicle, if one exists.
type MarkerSource interface {
	Marker(vehicleID string) (models.VehicleMarker, bool)
}

// AddressResolver turns coordinates into a display address.
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// Reconciler owns the map camera. It funnels every event through a
// single inbound channel into the transition machine and executes the
// resulting commands against the render adapter, so camera policy lives
// in exactly one place.
type Reconciler struct {
	// Dependencies
	machine  *Machine
	adapter  render.Adapter
	markers  MarkerSource
	resolver AddressResolver
	logger   zerolog.Logger

	// Internal state management
	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewReconciler creates a Reconciler. resolver may be nil when reverse
// geocoding is disabled.
func NewReconciler(machine *Machine, adapter render.Adapter, markers MarkerSource,
	resolver AddressResolver, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		machine:  machine,
		adapter:  adapter,
		markers:  markers,
		resolver: resolver,
		logger:   logger,
		events:   make(chan Event, 64),
	}
}

// Start launches the event loop and pushes the default camera position.
func (r *Reconciler) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn().Msg("Reconciler is already running")
		return errors.New("reconciler is already running")
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	r.mu.Unlock()

	r.adapter.SetViewState(r.machine.View())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()

	r.logger.Info().Msg("Reconciler started")
	return nil
}

// Stop drains the event loop and detaches from the adapter. Events
// delivered after Stop are ignored.
func (r *Reconciler) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		r.logger.Warn().Msg("Reconciler is not running")
		return errors.New("reconciler is not running")
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	r.logger.Info().Msg("Reconciler stopped")
	return nil
}

func (r *Reconciler) run() {
	graceTimer := time.NewTimer(time.Hour)
	if !graceTimer.Stop() {
		<-graceTimer.C
	}
	defer graceTimer.Stop()

	for {
		select {
		case event := <-r.events:
			r.apply(r.machine.Handle(event))
			r.armGrace(graceTimer)
		case <-graceTimer.C:
			r.apply(r.machine.Handle(GraceElapsed{}))
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Reconciler) armGrace(timer *time.Timer) {
	wait := r.machine.GraceWait()
	if wait < 0 {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(wait)
}

func (r *Reconciler) apply(commands []Command) {
	for _, command := range commands {
		switch c := command.(type) {
		case PanTo:
			r.adapter.PanTo(c.Point)
			r.resolveAddress(c.Point)
		case SetNoData:
			r.adapter.SetNoData(c.Visible)
		case SetFocusAddress:
			r.adapter.SetFocusAddress(c.Address)
		}
	}
}

// resolveAddress resolves the focused marker's street address off the
// event loop and reports back through the same channel.
func (r *Reconciler) resolveAddress(point models.TrackPoint) {
	if r.resolver == nil {
		return
	}
	focus := r.machine.Focus()
	if !focus.Focused() {
		return
	}

	vehicleID := focus.VehicleID
	go func() {
		ctx, cancelFn := context.WithTimeout(r.ctx, 5*time.Second)
		defer cancelFn()

		address, err := r.resolver.ReverseGeocode(ctx, point.Latitude, point.Longitude)
		if err != nil {
			r.logger.Debug().Err(err).Str("vehicle_id", vehicleID).Msg("Reverse geocode failed")
			return
		}
		r.Notify(FocusAddressResolved{VehicleID: vehicleID, Address: address})
	}()
}

// Notify delivers an event to the reconciler. It never blocks; when the
// loop is stopped or saturated the event is dropped.
func (r *Reconciler) Notify(event Event) {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return
	}

	select {
	case r.events <- event:
	default:
		r.logger.Warn().Msg("Reconciler event channel full, dropping event")
	}
}

// Select focuses the camera on a vehicle, looking up its current marker.
// Selecting from the list also resets any user-interaction suppression
// so programmatic control resumes.
func (r *Reconciler) Select(vehicleID string) {
	event := VehicleSelected{VehicleID: vehicleID}
	if marker, ok := r.markers.Marker(vehicleID); ok {
		point := marker.Point()
		event.Marker = &point
	}
	r.Notify(ResetInteraction{})
	r.Notify(event)
}

// UserDragStart implements render.InteractionSink.
func (r *Reconciler) UserDragStart() {
	r.Notify(UserDragStart{})
}

// UserZoomStart implements render.InteractionSink.
func (r *Reconciler) UserZoomStart() {
	r.Notify(UserZoomStart{})
}

// ViewSettled implements render.InteractionSink.
func (r *Reconciler) ViewSettled(center models.TrackPoint, zoom int) {
	r.Notify(ViewSettled{Center: center, Zoom: zoom})
}

// Machine exposes the transition core for read-only inspection.
func (r *Reconciler) Machine() *Machine {
	return r.machine
}
