// Package ws streams per-tick world frames to websocket observers.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"campusgrid.ai/internal/protocol"
	"campusgrid.ai/internal/sim/world"
)

// Hub fans committed ticks out to every connected observer. It is a tick
// sink: the simulation pushes frames in, slow clients lose old frames
// rather than stalling the tick loop.
type Hub struct {
	log *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	nextID  uint64
}

type client struct {
	id  uint64
	out chan []byte
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:     logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// OnTick broadcasts one frame to all observers.
func (h *Hub) OnTick(ts world.TickStats, agents []world.AgentView) error {
	frame := protocol.Frame{
		Type:      protocol.TypeFrame,
		Tick:      ts.Tick,
		Hour:      ts.Hour,
		Occupancy: ts.Occupancy,
		Agents:    agents,
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		sendLatest(c.out, b)
	}
	return nil
}

// sendLatest enqueues b, evicting the oldest pending frame if the client's
// queue is full. Observers always converge on the newest state.
func sendLatest(out chan []byte, b []byte) {
	for {
		select {
		case out <- b:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

// ClientCount reports the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := &client{out: make(chan []byte, 8)}
		h.mu.Lock()
		h.nextID++
		c.id = h.nextID
		h.clients[c] = struct{}{}
		h.mu.Unlock()
		h.log.Printf("observer %d connected from %s", c.id, r.RemoteAddr)

		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			h.log.Printf("observer %d disconnected", c.id)
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-c.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: observers send nothing meaningful; we read only to
		// notice disconnects and answer pings.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}
}
