package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/render"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rs/zerolog"
)

// ReaperService sweeps the track store on its own timer and evicts
// state for vehicles that stopped reporting. Two windows apply
// independently: the short marker window, because a stale marker is a
// ghost vehicle, and the longer path window, because a trailing path
// stays informative for a while after a vehicle goes quiet.
type ReaperService struct {
	// Configuration fields
	interval     time.Duration
	markerWindow time.Duration
	pathWindow   time.Duration

	// Dependencies
	store   *tracking.Store
	adapter render.Adapter
	logger  zerolog.Logger

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewReaperService initializes a new ReaperService.
func NewReaperService(interval, markerWindow, pathWindow time.Duration,
	store *tracking.Store, adapter render.Adapter, logger zerolog.Logger) *ReaperService {
	return &ReaperService{
		interval:     interval,
		markerWindow: markerWindow,
		pathWindow:   pathWindow,
		store:        store,
		adapter:      adapter,
		logger:       logger,
	}
}

// Start launches the periodic sweep.
func (r *ReaperService) Start() error {
	if r.running {
		r.logger.Warn().Msg("ReaperService is already running")
		return errors.New("reaper service is already running")
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep(time.Now())
			case <-r.ctx.Done():
				r.logger.Info().Msg("ReaperService is stopping")
				return
			}
		}
	}()

	r.logger.Info().
		Dur("marker_window", r.markerWindow).
		Dur("path_window", r.pathWindow).
		Msg("ReaperService started")
	return nil
}

// Stop gracefully stops the reaper.
func (r *ReaperService) Stop() error {
	if !r.running {
		r.logger.Warn().Msg("ReaperService is not running")
		return errors.New("reaper service is not running")
	}

	r.cancel()
	r.wg.Wait()
	r.running = false

	r.logger.Info().Msg("ReaperService stopped")
	return nil
}

// sweep evaluates both windows per vehicle. Marker eviction never
// implies path eviction and vice versa; the last-seen entry is only
// forgotten once both are gone.
func (r *ReaperService) sweep(now time.Time) {
	var markersEvicted, pathsEvicted int

	for vehicleID, seen := range r.store.LastSeenEntries() {
		stale := now.Sub(seen)

		if stale > r.markerWindow {
			if _, ok := r.store.Marker(vehicleID); ok {
				r.store.EvictMarker(vehicleID)
				markersEvicted++
			}
		}

		if stale > r.pathWindow {
			if r.store.HasPath(vehicleID) {
				r.store.EvictPath(vehicleID)
				pathsEvicted++
			}
			if _, ok := r.store.Marker(vehicleID); !ok {
				r.store.Forget(vehicleID)
			}
		}
	}

	if markersEvicted == 0 && pathsEvicted == 0 {
		return
	}

	// Evictions change what is visible, so push fresh sets even when no
	// new report arrived this second.
	r.adapter.SetMarkers(r.store.Markers())
	r.adapter.SetPaths(r.store.Paths())

	r.logger.Debug().
		Int("markers_evicted", markersEvicted).
		Int("paths_evicted", pathsEvicted).
		Msg("Stale vehicles reaped")
}
