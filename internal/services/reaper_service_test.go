package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestReaper(store *tracking.Store, adapter *recordingAdapter) *ReaperService {
	return NewReaperService(time.Second, 10*time.Second, 60*time.Second,
		store, adapter, zerolog.Nop())
}

func seedVehicle(store *tracking.Store, vehicleID string, seen time.Time) {
	store.ApplyLatest(vehicleID, models.TrackPoint{Latitude: 37.50, Longitude: 127.00}, "")
	store.Touch(vehicleID, seen)
}

// TestReaperService_MarkerWindowBeforePathWindow verifies the two
// windows apply independently: at 11s the marker is gone but the path
// survives until past 60s.
func TestReaperService_MarkerWindowBeforePathWindow(t *testing.T) {
	store := tracking.NewStore(0.0001)
	adapter := &recordingAdapter{}
	reaper := newTestReaper(store, adapter)

	t0 := time.Unix(1000, 0)
	seedVehicle(store, "v2", t0)

	reaper.sweep(t0.Add(11 * time.Second))

	_, hasMarker := store.Marker("v2")
	assert.False(t, hasMarker)
	assert.Len(t, store.Path("v2"), 1)
	// Last-seen survives so the path window can still be evaluated.
	_, hasSeen := store.LastSeen("v2")
	assert.True(t, hasSeen)

	reaper.sweep(t0.Add(61 * time.Second))

	assert.Nil(t, store.Path("v2"))
	_, hasSeen = store.LastSeen("v2")
	assert.False(t, hasSeen)
}

// TestReaperService_FreshVehicleUntouched verifies recently reporting
// vehicles are not evicted.
func TestReaperService_FreshVehicleUntouched(t *testing.T) {
	store := tracking.NewStore(0.0001)
	reaper := newTestReaper(store, &recordingAdapter{})

	t0 := time.Unix(1000, 0)
	seedVehicle(store, "v1", t0)

	reaper.sweep(t0.Add(9 * time.Second))

	_, hasMarker := store.Marker("v1")
	assert.True(t, hasMarker)
	assert.Len(t, store.Path("v1"), 1)
}

// TestReaperService_EvictingLastVehicleLeavesEmptyStore verifies the
// store ends in a valid empty state, not a stale reference.
func TestReaperService_EvictingLastVehicleLeavesEmptyStore(t *testing.T) {
	store := tracking.NewStore(0.0001)
	reaper := newTestReaper(store, &recordingAdapter{})

	t0 := time.Unix(1000, 0)
	seedVehicle(store, "v1", t0)

	reaper.sweep(t0.Add(2 * time.Minute))

	assert.Equal(t, 0, store.MarkerCount())
	assert.Equal(t, 0, store.PathCount())
	assert.Empty(t, store.LastSeenEntries())

	// Sweeping an empty store is a no-op, not a crash.
	reaper.sweep(t0.Add(3 * time.Minute))
}

// TestReaperService_EvictionPushesFreshSets verifies the render
// boundary learns about evictions even when no new report arrives.
func TestReaperService_EvictionPushesFreshSets(t *testing.T) {
	store := tracking.NewStore(0.0001)
	adapter := &recordingAdapter{}
	reaper := newTestReaper(store, adapter)

	t0 := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		seedVehicle(store, fmt.Sprintf("v%d", i), t0)
	}

	reaper.sweep(t0.Add(11 * time.Second))

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.Equal(t, 1, adapter.markerSets)
	assert.Empty(t, adapter.lastMarkers)
}

// TestReaperService_StartStop verifies the lifecycle guards.
func TestReaperService_StartStop(t *testing.T) {
	store := tracking.NewStore(0.0001)
	reaper := newTestReaper(store, &recordingAdapter{})

	assert.NoError(t, reaper.Start())
	assert.Error(t, reaper.Start())
	assert.NoError(t, reaper.Stop())
	assert.Error(t, reaper.Stop())
}
