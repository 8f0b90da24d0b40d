package tracking

import (
	"math"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rento-fleet/fleet-tracker/internal/models"
)

// Store is the authoritative in-memory track state: per-vehicle paths,
// latest markers, and last-seen timestamps. The dispatcher writes, the
// reaper deletes; everything else reads snapshots. Readers must tolerate
// absence, since eviction can interleave between ticks.
type Store struct {
	paths    cmap.ConcurrentMap[string, []models.TrackPoint]
	markers  cmap.ConcurrentMap[string, models.VehicleMarker]
	lastSeen cmap.ConcurrentMap[string, time.Time]
	epsilon  float64
}

// NewStore creates an empty store with the given duplicate-suppression
// epsilon (degrees, per axis).
func NewStore(epsilon float64) *Store {
	return &Store{
		paths:    cmap.New[[]models.TrackPoint](),
		markers:  cmap.New[models.VehicleMarker](),
		lastSeen: cmap.New[time.Time](),
		epsilon:  epsilon,
	}
}

// ApplyLatest absorbs the freshest report for a vehicle: appends the
// point to the path unless it duplicates the last point within epsilon,
// and replaces the marker unless the coordinates are bit-identical.
// LastSeen is not touched here; that is the dispatcher's job via Touch.
func (s *Store) ApplyLatest(vehicleID string, point models.TrackPoint, label string) {
	path, _ := s.paths.Get(vehicleID)
	if n := len(path); n == 0 || !s.withinEpsilon(path[n-1], point) {
		s.paths.Set(vehicleID, append(path, point))
	}

	marker, ok := s.markers.Get(vehicleID)
	if ok && marker.Latitude == point.Latitude && marker.Longitude == point.Longitude {
		if marker.Label != label {
			marker.Label = label
			s.markers.Set(vehicleID, marker)
		}
		return
	}
	s.markers.Set(vehicleID, models.VehicleMarker{
		VehicleID: vehicleID,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Label:     label,
	})
}

func (s *Store) withinEpsilon(a, b models.TrackPoint) bool {
	return math.Abs(a.Latitude-b.Latitude) < s.epsilon &&
		math.Abs(a.Longitude-b.Longitude) < s.epsilon
}

// Touch records when a vehicle's report was last absorbed.
func (s *Store) Touch(vehicleID string, at time.Time) {
	s.lastSeen.Set(vehicleID, at)
}

// LastSeen returns the last-absorbed timestamp for a vehicle.
func (s *Store) LastSeen(vehicleID string) (time.Time, bool) {
	return s.lastSeen.Get(vehicleID)
}

// LastSeenEntries returns a snapshot of every last-seen timestamp, for
// the reaper's sweep.
func (s *Store) LastSeenEntries() map[string]time.Time {
	return s.lastSeen.Items()
}

// Marker returns the current marker for a vehicle, if any.
func (s *Store) Marker(vehicleID string) (models.VehicleMarker, bool) {
	return s.markers.Get(vehicleID)
}

// Markers returns a snapshot of all live markers.
func (s *Store) Markers() map[string]models.VehicleMarker {
	return s.markers.Items()
}

// HasPath reports whether a vehicle has an accumulated path.
func (s *Store) HasPath(vehicleID string) bool {
	return s.paths.Has(vehicleID)
}

// Path returns a copy of a vehicle's accumulated path.
func (s *Store) Path(vehicleID string) []models.TrackPoint {
	path, ok := s.paths.Get(vehicleID)
	if !ok {
		return nil
	}
	out := make([]models.TrackPoint, len(path))
	copy(out, path)
	return out
}

// Paths returns a snapshot of all paths. The point slices are copied so
// callers cannot observe later appends.
func (s *Store) Paths() map[string][]models.TrackPoint {
	out := make(map[string][]models.TrackPoint, s.paths.Count())
	for id, path := range s.paths.Items() {
		cp := make([]models.TrackPoint, len(path))
		copy(cp, path)
		out[id] = cp
	}
	return out
}

// MarkerCount returns the number of live markers.
func (s *Store) MarkerCount() int {
	return s.markers.Count()
}

// PathCount returns the number of vehicles with an accumulated path.
func (s *Store) PathCount() int {
	return s.paths.Count()
}

// EvictMarker removes a vehicle's marker. The path is untouched.
func (s *Store) EvictMarker(vehicleID string) {
	s.markers.Remove(vehicleID)
}

// EvictPath removes a vehicle's path. The marker is untouched.
func (s *Store) EvictPath(vehicleID string) {
	s.paths.Remove(vehicleID)
}

// Forget drops a vehicle's last-seen entry. Only called by the reaper
// once both the marker and the path are gone.
func (s *Store) Forget(vehicleID string) {
	s.lastSeen.Remove(vehicleID)
}
