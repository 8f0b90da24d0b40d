package tracking_test

import (
	"testing"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/stretchr/testify/assert"
)

const epsilon = 0.0001

// TestStore_ApplyLatest_DuplicateSuppression verifies that a point
// within epsilon of the path's last point is not appended, while a
// point outside epsilon is.
func TestStore_ApplyLatest_DuplicateSuppression(t *testing.T) {
	store := tracking.NewStore(epsilon)

	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.50, Longitude: 127.00}, "12가3456")
	assert.Len(t, store.Path("v1"), 1)

	// Within epsilon on both axes: a stationary vehicle must not grow a
	// degenerate polyline.
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.50001, Longitude: 127.00001}, "12가3456")
	assert.Len(t, store.Path("v1"), 1)

	// Outside epsilon: appended, and the marker moves.
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.55, Longitude: 127.10}, "12가3456")
	path := store.Path("v1")
	assert.Len(t, path, 2)
	assert.Equal(t, models.TrackPoint{Latitude: 37.55, Longitude: 127.10}, path[1])

	marker, ok := store.Marker("v1")
	assert.True(t, ok)
	assert.Equal(t, 37.55, marker.Latitude)
	assert.Equal(t, 127.10, marker.Longitude)
}

// TestStore_ApplyLatest_Idempotent verifies that applying the identical
// point twice adds one path point and leaves the marker unchanged.
func TestStore_ApplyLatest_Idempotent(t *testing.T) {
	store := tracking.NewStore(epsilon)
	point := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}

	store.ApplyLatest("v1", point, "label")
	first, _ := store.Marker("v1")

	store.ApplyLatest("v1", point, "label")
	second, _ := store.Marker("v1")

	assert.Len(t, store.Path("v1"), 1)
	assert.Equal(t, first, second)
}

// TestStore_ApplyLatest_EpsilonSuppressedMarkerStillMoves verifies that
// a within-epsilon point skips the path but still replaces the marker
// when the coordinates are not bit-identical.
func TestStore_ApplyLatest_EpsilonSuppressedMarkerStillMoves(t *testing.T) {
	store := tracking.NewStore(epsilon)

	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.50, Longitude: 127.00}, "")
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.50001, Longitude: 127.00001}, "")

	assert.Len(t, store.Path("v1"), 1)
	marker, _ := store.Marker("v1")
	assert.Equal(t, 37.50001, marker.Latitude)
}

// TestStore_ApplyLatest_LabelRefresh verifies that a label change alone
// updates the marker without duplicating the path point.
func TestStore_ApplyLatest_LabelRefresh(t *testing.T) {
	store := tracking.NewStore(epsilon)
	point := models.TrackPoint{Latitude: 37.50, Longitude: 127.00}

	store.ApplyLatest("v1", point, "")
	store.ApplyLatest("v1", point, "12가3456")

	assert.Len(t, store.Path("v1"), 1)
	marker, _ := store.Marker("v1")
	assert.Equal(t, "12가3456", marker.Label)
}

// TestStore_PathLengthBound verifies that N reports never produce more
// than N path points, with equality when no consecutive pair is within
// epsilon.
func TestStore_PathLengthBound(t *testing.T) {
	store := tracking.NewStore(epsilon)

	points := []models.TrackPoint{
		{Latitude: 37.50, Longitude: 127.00},
		{Latitude: 37.51, Longitude: 127.01},
		{Latitude: 37.51, Longitude: 127.01}, // duplicate
		{Latitude: 37.52, Longitude: 127.02},
		{Latitude: 37.52000001, Longitude: 127.02}, // within epsilon
	}
	for _, p := range points {
		store.ApplyLatest("v1", p, "")
	}

	assert.Len(t, store.Path("v1"), 3)
}

// TestStore_Eviction_Independent verifies that evicting a marker leaves
// the path in place and vice versa, and that emptying the store is a
// valid state.
func TestStore_Eviction_Independent(t *testing.T) {
	store := tracking.NewStore(epsilon)
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.50, Longitude: 127.00}, "")
	store.Touch("v1", time.Now())

	store.EvictMarker("v1")
	_, hasMarker := store.Marker("v1")
	assert.False(t, hasMarker)
	assert.Len(t, store.Path("v1"), 1)

	store.EvictPath("v1")
	store.Forget("v1")
	assert.Nil(t, store.Path("v1"))
	assert.Equal(t, 0, store.MarkerCount())
	assert.Equal(t, 0, store.PathCount())
	assert.Empty(t, store.LastSeenEntries())

	// A fresh report recreates everything lazily.
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.60, Longitude: 127.10}, "")
	assert.Len(t, store.Path("v1"), 1)
}

// TestStore_SnapshotsAreCopies verifies that mutating the store after a
// Paths snapshot does not change the snapshot.
func TestStore_SnapshotsAreCopies(t *testing.T) {
	store := tracking.NewStore(epsilon)
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.50, Longitude: 127.00}, "")

	snapshot := store.Paths()
	store.ApplyLatest("v1", models.TrackPoint{Latitude: 37.60, Longitude: 127.10}, "")

	assert.Len(t, snapshot["v1"], 1)
	assert.Len(t, store.Path("v1"), 2)
}
