package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/snapgram/backend/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	// browser clients connect cross-origin from the frontend host
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is a single websocket connection owned by one user.
type Client struct {
	ID     string
	UserID string

	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	rooms  map[string]struct{}
}

func newClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// trySend queues a frame without blocking. Returns false when the
// client is closed or the send buffer is full. The send channel is
// never closed; shutdown is signalled through done, so a send can
// never race a close.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// clientCommand is the inbound frame shape: room join/leave requests.
type clientCommand struct {
	Action string `json:"action"` // "join" or "leave"
	Room   string `json:"room"`
}

// ServeWS upgrades the request and runs the connection until it drops.
// The connection auto-joins the user's private room.
func (h *Hub) ServeWS(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(userID, conn)
	h.Join(client, userID)

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		h.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd clientCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("client", c.ID).Msg("websocket closed")
			}
			return
		}
		if cmd.Room == "" {
			continue
		}
		switch cmd.Action {
		case "join":
			h.Join(c, cmd.Room)
		case "leave":
			h.Leave(c, cmd.Room)
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
