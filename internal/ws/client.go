package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBuffer = 64
)

// Envelope is the wire frame in both directions: an event name plus a
// structured payload.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundEnvelope defers payload decoding until the event is known.
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is the middleman between one websocket connection and the hub.
// Outbound delivery is fire-and-forget through the buffered send channel;
// a full buffer drops the message, never blocks the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Envelope
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan Envelope, sendBuffer),
	}
}

// ID returns the transport-assigned connection identifier.
func (c *Client) ID() string { return c.id }

// trySend queues an envelope without blocking.
func (c *Client) trySend(env Envelope) bool {
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// readPump pumps inbound protocol messages into the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env inboundEnvelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.hub.dispatch(c, env)
	}
}

// writePump pumps queued envelopes to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				log.Warn().Err(err).Str("id", c.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}
