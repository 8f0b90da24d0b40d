// Package wshub is a reference render adapter: it relays marker, path,
// and camera frames to browser map clients over websocket, and feeds
// their raw interaction events back into the view reconciler. Clients
// also drive vehicle selection, roster search, and trip deep links
// through typed control frames. The core only knows the render.Adapter
// interface; nothing below internal/wshub imports this package.
package wshub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/render"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// VehicleSelector focuses the camera on a vehicle a client picked.
type VehicleSelector interface {
	Select(vehicleID string)
}

// RosterControls is the subset of the roster poller map clients drive.
type RosterControls interface {
	SetSearchTerm(term string)
	FocusTrip(tripID string)
}

// frame is the wire envelope in both directions.
type frame struct {
	Type      string                          `json:"type"`
	Markers   map[string]models.VehicleMarker `json:"markers,omitempty"`
	Paths     map[string][]models.TrackPoint  `json:"paths,omitempty"`
	Point     *models.TrackPoint              `json:"point,omitempty"`
	View      *models.ViewState               `json:"view,omitempty"`
	Visible   bool                            `json:"visible,omitempty"`
	Address   string                          `json:"address,omitempty"`
	Center    *models.TrackPoint              `json:"center,omitempty"`
	Zoom      int                             `json:"zoom,omitempty"`
	Vehicles  []models.RosterVehicle          `json:"vehicles,omitempty"`
	VehicleID string                          `json:"vehicleId,omitempty"`
	TripID    string                          `json:"tripId,omitempty"`
	Term      string                          `json:"term,omitempty"`
}

// client is one connected map client. Outbound frames go through a
// buffered channel drained by its own write pump, so a stalled client
// never blocks the tracking pipeline.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to all connected map clients and implements
// render.Adapter. The latest marker/path/view/vehicle frames are
// replayed to newly connected clients so the map fills immediately.
type Hub struct {
	logger zerolog.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	sink     render.InteractionSink
	selector VehicleSelector
	roster   RosterControls
	last     map[string][]byte
}

// NewHub creates an empty hub. Bind the interaction sink, selector, and
// roster controls before serving.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		last:    make(map[string][]byte),
	}
}

// SetSink binds the receiver of user interaction events.
func (h *Hub) SetSink(sink render.InteractionSink) {
	h.mu.Lock()
	h.sink = sink
	h.mu.Unlock()
}

// SetSelector binds the receiver of client vehicle selections.
func (h *Hub) SetSelector(selector VehicleSelector) {
	h.mu.Lock()
	h.selector = selector
	h.mu.Unlock()
}

// SetRoster binds the roster controls clients drive with search and
// trip frames. Optional; without it those frames are ignored.
func (h *Hub) SetRoster(roster RosterControls) {
	h.mu.Lock()
	h.roster = roster
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and attaches the client to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	for _, data := range h.last {
		c.send <- data
	}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// removeClient detaches a client once; the send channel close ends its
// write pump.
func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) writePump(c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(c)
			return
		}
	}
	_ = c.conn.Close()
}

func (h *Hub) readPump(c *client) {
	defer h.removeClient(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleClientFrame(data)
	}
}

func (h *Hub) handleClientFrame(data []byte) {
	h.mu.Lock()
	sink := h.sink
	selector := h.selector
	roster := h.roster
	h.mu.Unlock()

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		h.logger.Debug().Err(err).Msg("Dropped malformed client frame")
		return
	}

	switch f.Type {
	case "drag_start":
		if sink != nil {
			sink.UserDragStart()
		}
	case "zoom_start":
		if sink != nil {
			sink.UserZoomStart()
		}
	case "view_settled":
		if sink != nil && f.Center != nil {
			sink.ViewSettled(*f.Center, f.Zoom)
		}
	case "select":
		if selector != nil && f.VehicleID != "" {
			selector.Select(f.VehicleID)
		}
	case "focus_trip":
		if roster != nil && f.TripID != "" {
			roster.FocusTrip(f.TripID)
		}
	case "search":
		if roster != nil {
			roster.SetSearchTerm(f.Term)
		}
	default:
		h.logger.Debug().Str("type", f.Type).Msg("Ignored unknown client frame")
	}
}

// broadcast marshals a frame, remembers it for replay when sticky, and
// queues it on every client. A client whose buffer is full is dropped
// rather than awaited.
func (h *Hub) broadcast(f frame, sticky bool) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error().Err(err).Str("type", f.Type).Msg("Failed to marshal render frame")
		return
	}

	h.mu.Lock()
	if sticky {
		h.last[f.Type] = data
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn().Msg("Dropped stalled map client")
		}
	}
	h.mu.Unlock()
}

// SetMarkers implements render.Adapter.
func (h *Hub) SetMarkers(markers map[string]models.VehicleMarker) {
	h.broadcast(frame{Type: "markers", Markers: markers}, true)
}

// SetPaths implements render.Adapter.
func (h *Hub) SetPaths(paths map[string][]models.TrackPoint) {
	h.broadcast(frame{Type: "paths", Paths: paths}, true)
}

// PanTo implements render.Adapter.
func (h *Hub) PanTo(point models.TrackPoint) {
	h.broadcast(frame{Type: "panTo", Point: &point}, false)
}

// SetViewState implements render.Adapter.
func (h *Hub) SetViewState(view models.ViewState) {
	h.broadcast(frame{Type: "view", View: &view}, true)
}

// SetNoData implements render.Adapter.
func (h *Hub) SetNoData(visible bool) {
	h.broadcast(frame{Type: "noData", Visible: visible}, false)
}

// SetFocusAddress implements render.Adapter.
func (h *Hub) SetFocusAddress(address string) {
	h.broadcast(frame{Type: "focusAddress", Address: address}, false)
}

// SetVisible broadcasts the merged visible-vehicle set after a roster
// refresh.
func (h *Hub) SetVisible(vehicles []models.RosterVehicle) {
	h.broadcast(frame{Type: "vehicles", Vehicles: vehicles}, true)
}
