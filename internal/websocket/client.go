package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Listeners only send small control messages.
	maxMessageSize = 4 * 1024
)

// The default origin check admits same-origin browsers and non-browser clients.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	ID string

	// 0 subscribes to every tenant
	tenantID atomic.Uint64

	// non-zero when the token only grants one tenant's feed
	scope uint
}

// controlMessage is sent by listeners to change their subscription
type controlMessage struct {
	Type     string `json:"type"`
	TenantID uint   `json:"tenantId"`
	MsgID    string `json:"msgId,omitempty"`
}

// TenantID returns the tenant filter of the listener
func (c *Client) TenantID() uint {
	return uint(c.tenantID.Load())
}

func (c *Client) wants(tenantID uint) bool {
	filter := c.TenantID()
	return filter == 0 || filter == tenantID
}

// readPump handles SUBSCRIBE control messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WS read error", "client_id", c.ID, "error", err)
			}
			break
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "SUBSCRIBE" {
			if c.scope != 0 && msg.TenantID != c.scope {
				c.sendJSON(map[string]interface{}{
					"type":     "ERROR",
					"msgId":    msg.MsgID,
					"tenantId": c.scope,
					"error":    "token is scoped to another tenant",
				})
				continue
			}
			c.tenantID.Store(uint64(msg.TenantID))
			c.sendJSON(map[string]interface{}{
				"type":     "ACK",
				"msgId":    msg.MsgID,
				"tenantId": msg.TenantID,
			})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendJSON(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// ServeWs upgrades the request and registers a progress listener.
// An optional ?tenant=<id> query restricts the feed to one tenant.
// A non-zero scope pins the listener to that tenant regardless of the query.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, scope uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WS upgrade failed", "error", err)
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), ID: "listener_" + uuid.New().String(), scope: scope}
	if scope != 0 {
		client.tenantID.Store(uint64(scope))
	} else if v := r.URL.Query().Get("tenant"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			client.tenantID.Store(id)
		}
	}
	select {
	case hub.register <- client:
	case <-hub.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
