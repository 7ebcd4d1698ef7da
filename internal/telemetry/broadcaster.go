// Package telemetry fans out per-tick simulation snapshots to external
// observers: a WebSocket broadcaster for live viewers and a serial sink for
// textual ADS-B-style reports. Neither is required by the core loops;
// PhysicsLoop and ADSBLoop only ever call the plain observer callbacks of
// §9 ("the core exposes plain observer callbacks for telemetry").
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Snapshot is one aircraft's state at a tick boundary.
type Snapshot struct {
	Timestamp time.Time  `json:"timestamp"`
	AircraftID int       `json:"aircraft_id"`
	Position  [3]float64 `json:"position"`
	Velocity  [3]float64 `json:"velocity"`
	RollAngle float64    `json:"roll_angle"`
	Collision bool       `json:"collision,omitempty"`
	SafeZone  bool       `json:"safe_zone_occupied,omitempty"`
}

// Broadcaster fans Snapshots out to connected WebSocket clients.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast chan Snapshot
	upgrader  websocket.Upgrader
	logger    *logrus.Logger

	messagesSent  uint64
	clientsServed uint64
}

type client struct {
	conn *websocket.Conn
	send chan Snapshot
	id   string
}

// New creates a Broadcaster. Unlike the teacher's streamer there is no
// clearance/access-control tier: every connected client receives every
// Snapshot, since nothing in this domain is access-restricted telemetry.
func New(logger *logrus.Logger) *Broadcaster {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Broadcaster{
		clients:   make(map[*client]bool),
		broadcast: make(chan Snapshot, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades an incoming HTTP request to a streaming
// WebSocket connection.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.WithError(err).Error("failed to upgrade websocket")
		return
	}

	c := &client{conn: conn, send: make(chan Snapshot, 64), id: r.RemoteAddr}
	b.register(c)
	b.logger.WithField("client", c.id).Info("telemetry client connected")

	ctx, cancel := context.WithCancel(context.Background())
	go b.writePump(ctx, c)
	go b.readPump(ctx, cancel, c)
}

func (b *Broadcaster) register(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = true
	b.clientsServed++
}

func (b *Broadcaster) unregister(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
		b.logger.WithField("client", c.id).Info("telemetry client disconnected")
	}
}

// Publish queues a Snapshot for broadcast, dropping the oldest queued
// snapshot if the buffer is full rather than blocking the simulation loop.
func (b *Broadcaster) Publish(s Snapshot) {
	select {
	case b.broadcast <- s:
	default:
		select {
		case <-b.broadcast:
		default:
		}
		b.broadcast <- s
	}
}

// Run drains the broadcast queue to all connected clients until ctx is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return ctx.Err()
		case s := <-b.broadcast:
			b.fanOut(s)
		}
	}
}

func (b *Broadcaster) fanOut(s Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		select {
		case c.send <- s:
			b.messagesSent++
		default:
		}
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		c.conn.Close()
		close(c.send)
		delete(b.clients, c)
	}
}

// Stats reports current client count and lifetime message counters.
func (b *Broadcaster) Stats() (clients int, sent, served uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients), b.messagesSent, b.clientsServed
}

func (b *Broadcaster) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(s)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Broadcaster) readPump(ctx context.Context, cancel context.CancelFunc, c *client) {
	defer func() {
		cancel()
		b.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.WithError(err).Error("telemetry websocket read error")
			}
			return
		}
		// Inbound client messages are not part of this protocol; the read
		// pump exists only to detect disconnects and service pongs.
	}
}
