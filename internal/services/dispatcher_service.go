package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/render"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rento-fleet/fleet-tracker/internal/view"
	"github.com/rs/zerolog"
)

// LabelResolver supplies the display label for a vehicle, typically
// from the active-vehicle roster.
type LabelResolver interface {
	Label(vehicleID string) string
}

// DispatcherService drains the ingestion queue at a fixed rate and
// applies the freshest report per vehicle to the track store on an
// independent snapshot tick. Dispatch cost is bounded per drain tick
// regardless of burst size, and the snapshot always applies the most
// recent report per vehicle.
type DispatcherService struct {
	// Configuration fields
	drainInterval    time.Duration
	snapshotInterval time.Duration
	drainPerTick     int

	// Dependencies
	queue      *tracking.ReportQueue
	store      *tracking.Store
	labels     LabelResolver
	adapter    render.Adapter
	reconciler *view.Reconciler
	logger     zerolog.Logger

	// Internal state management; both maps are touched only from the
	// single tick goroutine.
	lastReceived map[string]time.Time
	latest       map[string]models.PositionReport

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewDispatcherService initializes a new DispatcherService.
func NewDispatcherService(drainInterval, snapshotInterval time.Duration, drainPerTick int,
	queue *tracking.ReportQueue, store *tracking.Store, labels LabelResolver,
	adapter render.Adapter, reconciler *view.Reconciler, logger zerolog.Logger) *DispatcherService {
	if drainPerTick <= 0 {
		drainPerTick = 1
	}
	return &DispatcherService{
		drainInterval:    drainInterval,
		snapshotInterval: snapshotInterval,
		drainPerTick:     drainPerTick,
		queue:            queue,
		store:            store,
		labels:           labels,
		adapter:          adapter,
		reconciler:       reconciler,
		logger:           logger,
		lastReceived:     make(map[string]time.Time),
		latest:           make(map[string]models.PositionReport),
	}
}

// Start launches the drain and snapshot ticks on a single goroutine, so
// the two timers can fire in any relative order without racing.
func (d *DispatcherService) Start() error {
	if d.running {
		d.logger.Warn().Msg("DispatcherService is already running")
		return errors.New("dispatcher service is already running")
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.running = true

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		drainTicker := time.NewTicker(d.drainInterval)
		defer drainTicker.Stop()
		snapshotTicker := time.NewTicker(d.snapshotInterval)
		defer snapshotTicker.Stop()

		for {
			select {
			case <-drainTicker.C:
				d.drainTick(time.Now())
			case <-snapshotTicker.C:
				d.snapshotTick()
			case <-d.ctx.Done():
				d.logger.Info().Msg("DispatcherService is stopping")
				return
			}
		}
	}()

	d.logger.Info().
		Dur("drain_interval", d.drainInterval).
		Dur("snapshot_interval", d.snapshotInterval).
		Int("drain_per_tick", d.drainPerTick).
		Msg("DispatcherService started")
	return nil
}

// Stop gracefully stops the dispatcher.
func (d *DispatcherService) Stop() error {
	if !d.running {
		d.logger.Warn().Msg("DispatcherService is not running")
		return errors.New("dispatcher service is not running")
	}

	d.cancel()
	d.wg.Wait()
	d.running = false

	d.logger.Info().Msg("DispatcherService stopped")
	return nil
}

// QueueDepth returns the number of reports waiting in the queue.
func (d *DispatcherService) QueueDepth() int {
	return d.queue.Len()
}

// drainTick pops up to drainPerTick reports off the queue head, in FIFO
// order, and records them as the latest per vehicle.
func (d *DispatcherService) drainTick(now time.Time) {
	for i := 0; i < d.drainPerTick; i++ {
		report, ok := d.queue.Dequeue()
		if !ok {
			return
		}
		d.lastReceived[report.VehicleID] = now
		d.latest[report.VehicleID] = report
	}
}

// snapshotTick applies the latest-per-vehicle set to the track store and
// pushes the result to the render boundary. Only latest-wins semantics
// are guaranteed here; reports superseded between snapshots are not
// applied.
func (d *DispatcherService) snapshotTick() {
	if len(d.latest) == 0 {
		return
	}

	for vehicleID, report := range d.latest {
		d.store.Touch(vehicleID, d.lastReceived[vehicleID])
		// The timestamp now lives in the store's last-seen map; dropping
		// the local entry keeps dispatch state bounded over long sessions.
		delete(d.lastReceived, vehicleID)

		point := models.TrackPoint{Latitude: report.Latitude, Longitude: report.Longitude}
		d.store.ApplyLatest(vehicleID, point, d.labels.Label(vehicleID))

		if d.reconciler != nil {
			d.reconciler.Notify(view.MarkerUpdated{VehicleID: vehicleID, Point: point})
		}
	}

	applied := len(d.latest)
	d.latest = make(map[string]models.PositionReport)

	d.adapter.SetMarkers(d.store.Markers())
	d.adapter.SetPaths(d.store.Paths())

	d.logger.Debug().Int("applied", applied).Msg("Snapshot applied to track store")
}
