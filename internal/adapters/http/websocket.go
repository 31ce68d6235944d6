package http

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/session"
	"github.com/parksafe/parksafe/internal/pkg/metrics"
)

// wsCommand is sent from the client to drive its map session.
type wsCommand struct {
	Action string  `json:"action"` // "locate" | "refresh" | "search" | "clear_search"
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"` // meters, search only (optional)
}

// wsSnapshot is the session state pushed back after every command.
type wsSnapshot struct {
	Type    string          `json:"type"` // "markers"
	State   string          `json:"state"`
	Markers []domain.Marker `json:"markers"`
	Count   int             `json:"count"`
	Error   string          `json:"error,omitempty"`
}

// WebSocketHandler drives one map session per connection. Clients send
// JSON like {"action":"locate","lat":46.2530,"lon":20.1484}; the server
// answers with the merged marker set and relays live availability
// updates from NATS into the session.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		log.Printf("ws client connected: %s", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		st := session.New(deps.Markers, session.Options{})
		defer st.Close()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		snapshot := func() {
			snap := wsSnapshot{Type: "markers", State: st.State().String()}
			snap.Markers = st.Markers()
			snap.Count = len(snap.Markers)
			if err := st.Err(); err != nil {
				snap.Error = err.Error()
			}
			_ = writeJSON(snap)
		}

		// Relay live availability updates into the session and out to
		// the client. The NATS connection is optional.
		var sub *nats.Subscription
		if deps.NATS != nil {
			var err error
			sub, err = deps.NATS.Subscribe("parksafe.markers.updated.>", func(msg *nats.Msg) {
				var update domain.MarkerUpdated
				if err := json.Unmarshal(msg.Data, &update); err != nil {
					return
				}
				st.ApplyUpdate(update)
				_ = writeJSON(map[string]interface{}{
					"type":      "update",
					"kind":      update.Kind,
					"marker_id": update.MarkerID,
					"available": update.Available,
					"at":        update.At,
				})
			})
			if err != nil {
				log.Printf("ws relay subscribe error: %v", err)
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var cmd wsCommand
			if err := json.Unmarshal(msg, &cmd); err != nil {
				_ = writeJSON(map[string]string{"type": "error", "error": "invalid JSON"})
				continue
			}

			switch cmd.Action {
			case "locate":
				if err := st.SetLocation(context.Background(), domain.GeoPoint{Lat: cmd.Lat, Lon: cmd.Lon}); err != nil && st.State() != session.StateFailed {
					_ = writeJSON(map[string]string{"type": "error", "error": err.Error()})
					continue
				}
				snapshot()

			case "refresh":
				if err := st.Refresh(context.Background()); err != nil && st.State() != session.StateFailed {
					_ = writeJSON(map[string]string{"type": "error", "error": err.Error()})
					continue
				}
				snapshot()

			case "search":
				if err := st.Search(context.Background(), domain.GeoPoint{Lat: cmd.Lat, Lon: cmd.Lon}, cmd.Radius); err != nil {
					_ = writeJSON(map[string]string{"type": "error", "error": err.Error()})
					continue
				}
				snapshot()

			case "clear_search":
				st.ClearSearch()
				snapshot()

			default:
				_ = writeJSON(map[string]string{"type": "error", "error": "unknown action: " + cmd.Action})
			}
		}

		close(done)
		if sub != nil {
			_ = sub.Unsubscribe()
		}
		log.Printf("ws client disconnected: %s", remoteAddr)
	}
}
