package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rento-fleet/fleet-tracker/pkg/credential"
	"github.com/rs/zerolog"
)

// VehicleSelector focuses the camera on a vehicle, typically the view
// reconciler.
type VehicleSelector interface {
	Select(vehicleID string)
}

// VisibleSink receives the merged visible-vehicle set after each roster
// refresh, typically the render boundary's client hub.
type VisibleSink interface {
	SetVisible(vehicles []models.RosterVehicle)
}

// RosterService polls the active-vehicle list endpoint on a fixed
// interval and on every search-term change. The roster supplies display
// labels and the "currently visible" union with live markers; either
// side may be missing for a vehicle and both cases are valid. It also
// resolves trip deep links to their vehicle, deferring until the trip
// shows up in the roster when it is not yet known.
type RosterService struct {
	// Configuration fields
	endpoint string
	interval time.Duration

	// Dependencies. selector and visibleSink are optional and must be
	// bound before Start.
	httpClient  *http.Client
	credentials credential.ManagerInterface
	store       *tracking.Store
	selector    VehicleSelector
	visibleSink VisibleSink
	logger      zerolog.Logger

	// Internal state management
	mu          sync.RWMutex
	entries     map[string]models.RosterEntry
	term        string
	pendingTrip string
	searchCh    chan string
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
}

// NewRosterService initializes a new RosterService.
func NewRosterService(endpoint string, interval time.Duration,
	credentials credential.ManagerInterface, store *tracking.Store,
	logger zerolog.Logger) *RosterService {
	return &RosterService{
		endpoint:    endpoint,
		interval:    interval,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		credentials: credentials,
		store:       store,
		logger:      logger,
		entries:     make(map[string]models.RosterEntry),
		searchCh:    make(chan string, 4),
	}
}

// Start launches the polling loop with an immediate first fetch.
func (r *RosterService) Start() error {
	if r.running {
		r.logger.Warn().Msg("RosterService is already running")
		return errors.New("roster service is already running")
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.fetch()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.fetch()
			case term := <-r.searchCh:
				r.mu.Lock()
				r.term = term
				r.mu.Unlock()
				r.fetch()
			case <-r.ctx.Done():
				r.logger.Info().Msg("RosterService is stopping")
				return
			}
		}
	}()

	r.logger.Info().Str("endpoint", r.endpoint).Dur("interval", r.interval).Msg("RosterService started")
	return nil
}

// Stop gracefully stops the roster poller.
func (r *RosterService) Stop() error {
	if !r.running {
		r.logger.Warn().Msg("RosterService is not running")
		return errors.New("roster service is not running")
	}

	r.cancel()
	r.wg.Wait()
	r.running = false

	r.logger.Info().Msg("RosterService stopped")
	return nil
}

// SetSelector binds the receiver of trip-focus selections. Must be
// called before Start.
func (r *RosterService) SetSelector(selector VehicleSelector) {
	r.selector = selector
}

// SetVisibleSink binds the receiver of visible-set updates. Must be
// called before Start.
func (r *RosterService) SetVisibleSink(sink VisibleSink) {
	r.visibleSink = sink
}

// SetSearchTerm changes the roster filter and triggers an immediate
// refetch. Non-blocking; a rapid burst of changes collapses.
func (r *RosterService) SetSearchTerm(term string) {
	select {
	case r.searchCh <- term:
	default:
	}
}

// FocusTrip focuses the camera on the vehicle serving a trip. When the
// trip is already in the roster the selection happens immediately;
// otherwise it is remembered and resolved by the next refresh, and a
// refetch is triggered so a fresh deep link resolves promptly. The
// selection itself goes through the ordinary vehicle path, so a trip
// whose vehicle has no marker yet enters the same searching state.
func (r *RosterService) FocusTrip(tripID string) {
	if tripID == "" || r.selector == nil {
		return
	}

	r.mu.Lock()
	vehicleID := r.vehicleForTripLocked(tripID)
	if vehicleID == "" {
		r.pendingTrip = tripID
	}
	term := r.term
	r.mu.Unlock()

	if vehicleID != "" {
		r.selector.Select(vehicleID)
		return
	}

	// Re-poll with the current term so the pending trip resolves without
	// waiting out the interval.
	select {
	case r.searchCh <- term:
	default:
	}
}

// vehicleForTripLocked looks the trip up in the current roster. Caller
// holds mu.
func (r *RosterService) vehicleForTripLocked(tripID string) string {
	for id, entry := range r.entries {
		if entry.TripID == tripID {
			return id
		}
	}
	return ""
}

// Label implements LabelResolver. A vehicle absent from the roster is
// rendered without a label, which is valid.
func (r *RosterService) Label(vehicleID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[vehicleID].Label
}

// Visible returns the union of roster entries and live markers, sorted
// by vehicle ID. Roster rows with no marker yet are pending; markers
// with no roster row appear unlabeled.
func (r *RosterService) Visible() []models.RosterVehicle {
	markers := r.store.Markers()

	r.mu.RLock()
	merged := make(map[string]models.RosterVehicle, len(r.entries)+len(markers))
	for id, entry := range r.entries {
		_, hasMarker := markers[id]
		merged[id] = models.RosterVehicle{
			VehicleID: id,
			Label:     entry.Label,
			TripID:    entry.TripID,
			Pending:   !hasMarker,
		}
	}
	r.mu.RUnlock()

	for id, marker := range markers {
		if _, ok := merged[id]; ok {
			continue
		}
		merged[id] = models.RosterVehicle{VehicleID: id, Label: marker.Label}
	}

	out := make([]models.RosterVehicle, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// fetch pulls the roster once. Failures are logged and skipped; the
// next tick retries with whatever roster we already have.
func (r *RosterService) fetch() {
	ctx, cancel := context.WithTimeout(r.ctx, 10*time.Second)
	defer cancel()

	r.mu.RLock()
	term := r.term
	r.mu.RUnlock()

	endpoint := r.endpoint
	if term != "" {
		endpoint = fmt.Sprintf("%s?search=%s", r.endpoint, url.QueryEscape(term))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build roster request")
		return
	}
	if token := r.credentials.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Roster fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn().Int("status", resp.StatusCode).Msg("Roster endpoint returned non-OK status")
		return
	}

	var rows []models.RosterEntry
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to decode roster response")
		return
	}

	entries := make(map[string]models.RosterEntry, len(rows))
	for _, row := range rows {
		if id := row.ID(); id != "" {
			entries[id] = row
		}
	}

	r.mu.Lock()
	r.entries = entries
	var focusID string
	if r.pendingTrip != "" {
		if focusID = r.vehicleForTripLocked(r.pendingTrip); focusID != "" {
			r.pendingTrip = ""
		}
	}
	r.mu.Unlock()

	if focusID != "" && r.selector != nil {
		r.logger.Info().Str("vehicle_id", focusID).Msg("Deferred trip focus resolved")
		r.selector.Select(focusID)
	}
	if r.visibleSink != nil {
		r.visibleSink.SetVisible(r.Visible())
	}

	r.logger.Debug().Int("vehicles", len(entries)).Msg("Roster refreshed")
}
