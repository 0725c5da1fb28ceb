package hub

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/sensor-bridge/internal/wire"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024

	// sendQueueSize bounds the per-client outbound queue. A client that falls
	// this far behind loses events instead of stalling the broadcast.
	sendQueueSize = 32
)

var (
	errClientClosed = errors.New("client closed")
	errQueueFull    = errors.New("send queue full")
)

// Hub serves websocket clients: it registers them on connect, pumps
// broadcasts to them and turns inbound Reset commands into onReset calls.
type Hub struct {
	registry *Registry
	onReset  func()
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

// NewHub creates a Hub that registers clients in registry. onReset is called
// for every Reset command received from any client.
func NewHub(registry *Registry, onReset func()) *Hub {
	if onReset == nil {
		onReset = func() {}
	}
	return &Hub{
		registry: registry,
		onReset:  onReset,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The channel is unauthenticated; accept any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		log.Printf("hub: upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	c := &wsClient{
		id:   h.nextID.Add(1),
		addr: r.RemoteAddr,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	h.registry.Register(c)
	log.Printf("hub: %v connected (%d clients)", c, h.registry.Len())

	go c.writePump()
	h.readPump(c)

	h.registry.Unregister(c)
	c.close()
	log.Printf("hub: %v disconnected (%d clients)", c, h.registry.Len())
}

// Close disconnects every websocket client.
func (h *Hub) Close() {
	h.registry.ForEach(func(c Client) {
		if wc, ok := c.(*wsClient); ok {
			wc.close()
		}
	})
}

// readPump processes inbound messages until the connection fails.
// Malformed messages and unknown commands are ignored without a reply.
func (h *Hub) readPump(c *wsClient) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub: %v read error: %v", c, err)
			}
			return
		}

		cmd, err := wire.DecodeCommand(data)
		if err != nil {
			log.Printf("hub: %v sent malformed message: %v", c, err)
			continue
		}
		if cmd == wire.CommandReset {
			log.Printf("hub: reset requested by %v", c)
			h.onReset()
		}
	}
}

type wsClient struct {
	id   uint64
	addr string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsClient) String() string {
	return fmt.Sprintf("client %d (%s)", c.id, c.addr)
}

// Send queues payload for the write pump without blocking.
func (c *wsClient) Send(payload []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errQueueFull
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump writes queued payloads and keepalive pings. It owns all writes
// to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("hub: write to %v failed: %v", c, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
