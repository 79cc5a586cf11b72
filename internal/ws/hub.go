package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"bus-relay/internal/metrics"
	"bus-relay/internal/publisher"
	"bus-relay/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay trusts cooperative LAN clients; tighten for public deployments.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub owns the set of live clients, feeds their inbound messages through the
// engine one at a time, and fans the returned messages back out. The
// dispatch lock makes each mutate-then-broadcast sequence atomic, so a
// later broadcast never carries an older snapshot.
type Hub struct {
	ctx     context.Context
	engine  *relay.Engine
	mirror  *publisher.NATSPublisher
	metrics *metrics.Collector

	dispatchMu sync.Mutex

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(ctx context.Context, engine *relay.Engine, mirror *publisher.NATSPublisher, m *metrics.Collector) *Hub {
	return &Hub{
		ctx:     ctx,
		engine:  engine,
		mirror:  mirror,
		metrics: m,
		clients: make(map[string]*Client),
	}
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := newClient(uuid.New().String(), h, conn)

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	// Create the engine record before the pumps run, so an instant
	// disconnect always finds something to remove.
	h.dispatchMu.Lock()
	h.deliver(c, h.engine.Connect(c.id))
	h.dispatchMu.Unlock()

	c.start()
}

// remove tears the client down and lets the engine tell everyone left.
// Called from the read pump on any disconnect.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()

	h.dispatchMu.Lock()
	h.deliver(c, h.engine.Disconnect(c.id))
	h.dispatchMu.Unlock()
}

// dispatch routes one inbound protocol message into the engine and delivers
// whatever the engine decided to send. Unknown events are ignored.
func (h *Hub) dispatch(c *Client, env inboundEnvelope) {
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	switch env.Event {
	case relay.EventRegisterRole:
		h.deliver(c, h.engine.RegisterRole(h.ctx, c.id, decode[relay.RegisterPayload](env.Data)))

	case relay.EventUnregisterRole:
		h.deliver(c, h.engine.UnregisterRole(c.id))

	case relay.EventSendLocation:
		msgs, snap := h.engine.SubmitLocation(c.id, decode[relay.RawLocation](env.Data))
		h.deliver(c, msgs)
		h.mirrorPosition(snap)

	case relay.EventSetBusStatus:
		h.deliver(c, h.engine.SetStatus(c.id, decode[relay.StatusPayload](env.Data)))

	case relay.EventRequestBuses:
		h.deliver(c, h.engine.RequestBuses(c.id))

	case relay.EventListNames:
		h.deliver(c, h.engine.RegisteredNames(h.ctx, c.id))

	default:
		log.Debug().Str("event", env.Event).Str("id", c.id).Msg("unknown inbound event")
	}
}

// deliver fans out the engine's messages according to their scope.
func (h *Hub) deliver(sender *Client, msgs []relay.Outbound) {
	if len(msgs) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range msgs {
		env := Envelope{Event: m.Event, Data: m.Data}
		sent := 0
		switch m.Scope {
		case relay.ToCaller:
			if cl, ok := h.clients[sender.id]; ok {
				sent += h.sendTo(cl, env)
			}
		case relay.ToOthers:
			for _, cl := range h.clients {
				if cl.id == sender.id {
					continue
				}
				sent += h.sendTo(cl, env)
			}
		case relay.ToAll:
			for _, cl := range h.clients {
				sent += h.sendTo(cl, env)
			}
		}
		if h.metrics != nil && m.Scope != relay.ToCaller {
			h.metrics.BroadcastFanout.Observe(float64(sent))
		}
	}
}

func (h *Hub) sendTo(c *Client, env Envelope) int {
	if !c.trySend(env) {
		if h.metrics != nil {
			h.metrics.MessagesDropped.Inc()
		}
		log.Warn().Str("id", c.id).Str("event", env.Event).Msg("client buffer full, dropping message")
		return 0
	}
	return 1
}

func (h *Hub) mirrorPosition(snap *relay.BusSnapshot) {
	if h.mirror == nil || snap == nil {
		return
	}
	msg := publisher.PositionMessage{
		ID:        snap.ID,
		Name:      snap.Name,
		Status:    string(snap.Status),
		Timestamp: time.Now(),
		Lat:       snap.Lat,
		Lng:       snap.Lng,
		Accuracy:  snap.Accuracy,
		Heading:   snap.Heading,
		Speed:     snap.Speed,
	}
	if err := h.mirror.PublishPosition(snap.ID, msg); err != nil {
		log.Warn().Err(err).Str("id", snap.ID).Msg("position mirror publish failed")
	}
}

// ClientCount returns the number of live clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client connection.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	log.Info().Msg("closed all websocket clients")
}

// decode unmarshals a raw payload into T. Malformed payloads yield the zero
// value, which every pipeline rejects or drops on its own terms.
func decode[T any](raw json.RawMessage) T {
	var v T
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}
