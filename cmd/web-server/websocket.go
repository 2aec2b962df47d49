package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
)

const (
	// wsUpdateInterval is how often each client receives a position frame.
	wsUpdateInterval = 5 * time.Second

	// wsPositionMaxAge bounds how stale a sonde position may be and still
	// appear in the feed.
	wsPositionMaxAge = 10 * time.Minute

	wsWriteTimeout = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is public, same as the REST CORS policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRegistry counts connected feed clients for the status endpoint.
type wsRegistry struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newWSRegistry() *wsRegistry {
	return &wsRegistry{clients: make(map[*websocket.Conn]struct{})}
}

func (reg *wsRegistry) add(conn *websocket.Conn) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.clients[conn] = struct{}{}
}

func (reg *wsRegistry) remove(conn *websocket.Conn) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.clients, conn)
}

func (reg *wsRegistry) count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.clients)
}

// handleWebSocket streams the latest sonde positions to the client every
// few seconds until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.ws.add(conn)
	defer s.ws.remove(conn)
	log.Printf("🔌 WebSocket client connected: %s", r.RemoteAddr)

	// Clients never send data frames; the read loop only notices when the
	// peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsUpdateInterval)
	defer ticker.Stop()

	for {
		if err := s.sendPositions(conn); err != nil {
			log.Printf("WebSocket send failed (%s): %v", r.RemoteAddr, err)
			return
		}
		select {
		case <-done:
			log.Printf("🔌 WebSocket client disconnected: %s", r.RemoteAddr)
			return
		case <-ticker.C:
		}
	}
}

// sendPositions writes one position frame: every sonde heard recently, with
// look angles from the configured observer.
func (s *Server) sendPositions(conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := s.points.LatestPositions(ctx, wsPositionMaxAge)
	if err != nil {
		return fmt.Errorf("loading positions: %w", err)
	}

	observer := s.cfg.Observer.Position()

	type sondeUpdate struct {
		Serial     string    `json:"serial"`
		Time       time.Time `json:"time"`
		Latitude   float64   `json:"lat"`
		Longitude  float64   `json:"lon"`
		Altitude   float64   `json:"alt"`
		Azimuth    float64   `json:"azimuth"`
		Elevation  float64   `json:"elevation"`
		RangeKm    float64   `json:"rangeKm"`
		Descending bool      `json:"descending"`
	}

	sondes := make([]sondeUpdate, len(records))
	for i, rec := range records {
		look := geodesy.ComputeLookAngle(observer, rec.Position())
		sondes[i] = sondeUpdate{
			Serial:     rec.FlightSerial(),
			Time:       rec.Datetime,
			Latitude:   rec.Lat,
			Longitude:  rec.Lon,
			Altitude:   rec.Alt,
			Azimuth:    look.Bearing,
			Elevation:  look.Elevation,
			RangeKm:    look.GreatCircleDistance / 1000.0,
			Descending: rec.Descending(),
		}
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(map[string]interface{}{
		"type":   "positions",
		"time":   time.Now().UTC(),
		"count":  len(sondes),
		"sondes": sondes,
	})
}
