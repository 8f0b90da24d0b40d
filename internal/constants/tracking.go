package constants

import "time"

// Reference timings for the live-tracking pipeline. All of these are
// configurable; the config loader falls back to these when a field is zero.
const (
	// DefaultDrainInterval is the period of the queue-drain tick.
	DefaultDrainInterval = 1 * time.Second

	// DefaultSnapshotInterval is the period of the render-snapshot tick
	// that applies the latest-per-vehicle reports to the track store.
	DefaultSnapshotInterval = 1 * time.Second

	// DefaultDrainPerTick is how many queued reports one drain tick pops.
	DefaultDrainPerTick = 1

	// DefaultReaperInterval is the period of the staleness sweep.
	DefaultReaperInterval = 1 * time.Second

	// DefaultMarkerWindow is how long a vehicle may go unreported before
	// its marker is evicted. Short, because a stale marker is a ghost.
	DefaultMarkerWindow = 10 * time.Second

	// DefaultPathWindow is how long the accumulated path outlives the
	// last report. Longer than the marker window; a trailing path stays
	// informative after a vehicle goes quiet.
	DefaultPathWindow = 60 * time.Second

	// DefaultRosterInterval is the poll period for the active-vehicle list.
	DefaultRosterInterval = 5 * time.Second

	// DefaultStatusInterval is the period of the runtime status beacon.
	DefaultStatusInterval = 30 * time.Second
)

const (
	// DuplicateEpsilon is the per-axis coordinate tolerance under which a
	// new point is considered identical to the path's last point and is
	// not appended. Roughly 11 m at the equator.
	DuplicateEpsilon = 0.0001

	// DefaultPanCooldown suppresses user-override detection for this long
	// after a programmatic camera move, absorbing event feedback from the
	// map surface.
	DefaultPanCooldown = 300 * time.Millisecond

	// DefaultFocusGrace is how long a focused vehicle may lack a marker
	// before the "no data" indication is shown.
	DefaultFocusGrace = 1 * time.Second
)

// Default camera position when no vehicle is focused yet.
const (
	DefaultCenterLatitude  = 37.5665
	DefaultCenterLongitude = 126.9780
	DefaultZoom            = 12
)
