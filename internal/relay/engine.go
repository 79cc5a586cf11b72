package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"bus-relay/internal/metrics"
	"bus-relay/internal/namelog"
)

// DefaultMinSendInterval is the minimum accepted interval between location
// updates from one bus. Updates arriving faster are silently dropped to
// bound broadcast volume under fast position sampling.
const DefaultMinSendInterval = 800 * time.Millisecond

// maxListedNames caps the list-registered-names reply.
const maxListedNames = 200

// Engine is the presence and location synchronization core. Every operation
// mutates the registry and derives the outbound messages the transport must
// deliver; the engine itself never talks to the network. One coarse lock
// scopes each mutate-then-derive sequence so a derived snapshot always
// reflects a consistent post-mutation state.
type Engine struct {
	mu      sync.Mutex
	reg     *Registry
	names   namelog.Store
	metrics *metrics.Collector

	minSendInterval time.Duration
	now             func() time.Time
}

type Option func(*Engine)

// WithMetrics attaches a prometheus collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithMinSendInterval overrides the location rate-limit window.
func WithMinSendInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.minSendInterval = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(reg *Registry, names namelog.Store, opts ...Option) *Engine {
	e := &Engine{
		reg:             reg,
		names:           names,
		minSendInterval: DefaultMinSendInterval,
		now:             time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Connect creates the session record for a new connection and hands the
// caller its placeholder name.
func (e *Engine) Connect(id string) []Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.reg.Add(id)
	if e.metrics != nil {
		e.metrics.ConnectedClients.Set(float64(e.reg.Len()))
	}
	log.Info().Str("id", id).Str("name", c.Name).Msg("connection opened")
	return []Outbound{{Scope: ToCaller, Event: EventAssignName, Data: c.Name}}
}

// Disconnect destroys the record immediately and tells everyone left.
// Unknown ids are a no-op; the record may already be gone.
func (e *Engine) Disconnect(id string) []Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.reg.Get(id)
	if c == nil {
		return nil
	}
	e.reg.Remove(id)
	if e.metrics != nil {
		e.metrics.ConnectedClients.Set(float64(e.reg.Len()))
	}
	log.Info().Str("id", id).Str("name", c.Name).Msg("connection closed")

	out := []Outbound{{Scope: ToAll, Event: EventUserDisconnected, Data: id}}
	return append(out, e.fullSnapshot()...)
}

// RegisterRole runs the role state machine for one connection. Bad roles are
// rejected to the caller only; a bad display name never fails a bus
// registration, the placeholder name is kept instead.
func (e *Engine) RegisterRole(ctx context.Context, id string, p RegisterPayload) []Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.reg.Get(id)
	if c == nil {
		return nil
	}

	role := Role(p.Role)
	if role != RoleBus && role != RoleCustomer {
		if e.metrics != nil {
			e.metrics.RegistrationFails.Inc()
		}
		return []Outbound{{Scope: ToCaller, Event: EventRegisterRoleFailed, Data: "Invalid role"}}
	}
	c.Role = role

	if role == RoleBus {
		if s, ok := SanitizeName(p.Name); ok {
			c.Name = s
		}
		if st := Status(p.Status); st == StatusAvailable || st == StatusFull {
			c.Status = st
		}
		e.appendName(ctx, c.Name)
		log.Info().Str("id", id).Str("name", c.Name).Msg("bus registered")
	} else {
		// a customer never carries a stored location
		c.LastLocation = nil
		log.Info().Str("id", id).Msg("customer registered")
	}
	if e.metrics != nil {
		e.metrics.Registrations.WithLabelValues(string(role)).Inc()
	}

	out := []Outbound{{
		Scope: ToCaller,
		Event: EventRegisterRoleOK,
		Data:  RegisterAck{Role: c.Role, Name: c.Name, Status: c.Status},
	}}
	return append(out, e.fullSnapshot()...)
}

// UnregisterRole reverts a connection to the unassigned state without
// tearing down the transport session: role and location are cleared, status
// resets, the display name survives. Observers see the bus leave through the
// pushed snapshot.
func (e *Engine) UnregisterRole(id string) []Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.reg.Get(id)
	if c == nil {
		return nil
	}
	c.Role = RoleUnassigned
	c.LastLocation = nil
	c.Status = StatusAvailable
	log.Info().Str("id", id).Str("name", c.Name).Msg("role unregistered")

	out := []Outbound{{Scope: ToCaller, Event: EventUnregisterRoleOK, Data: UnregisterAck{Name: c.Name}}}
	return append(out, e.fullSnapshot()...)
}

// SubmitLocation validates, rate-limits and stores one position sample.
// All drop paths are silent: a high-frequency sampling loop must not be
// flooded with error traffic.
func (e *Engine) SubmitLocation(id string, raw RawLocation) ([]Outbound, *BusSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.reg.Get(id)
	if c == nil {
		e.dropLocation("stale")
		return nil, nil
	}
	if c.Role != RoleBus {
		e.dropLocation("role")
		return nil, nil
	}

	now := e.now()
	if !c.LastAcceptedAt.IsZero() && now.Sub(c.LastAcceptedAt) < e.minSendInterval {
		e.dropLocation("rate_limited")
		return nil, nil
	}

	lat, okLat := coerceFloat(raw.Lat)
	lng, okLng := coerceFloat(raw.Lng)
	if !okLat || !okLng || !ValidLatLng(lat, lng) {
		e.dropLocation("invalid")
		return nil, nil
	}

	c.LastLocation = &Location{
		Lat:      lat,
		Lng:      lng,
		Accuracy: optFloat(raw.Accuracy),
		Heading:  optFloat(raw.Heading),
		Speed:    optFloat(raw.Speed),
	}
	c.LastAcceptedAt = now
	if e.metrics != nil {
		e.metrics.LocationsAccepted.Inc()
	}

	snap := snapshotOf(c)
	out := []Outbound{{Scope: ToOthers, Event: EventReceiveLocation, Data: snap}}
	out = append(out, e.fullSnapshot()...)
	out = append(out, Outbound{Scope: ToAll, Event: EventBusUpdated, Data: BusUpdate{Bus: snap}})
	return out, &snap
}

// SetStatus stores a bus's seat availability. Unlike the location path,
// rejections here are explicit failure notices to the caller.
func (e *Engine) SetStatus(id string, p StatusPayload) []Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.reg.Get(id)
	if c == nil {
		return nil
	}
	if c.Role != RoleBus {
		return []Outbound{{Scope: ToCaller, Event: EventSetStatusFailed, Data: "Only a bus may set status"}}
	}
	st := Status(p.Status)
	if st != StatusAvailable && st != StatusFull {
		return []Outbound{{Scope: ToCaller, Event: EventSetStatusFailed, Data: "Invalid status"}}
	}

	c.Status = st
	c.LastAcceptedAt = e.now()
	if e.metrics != nil {
		e.metrics.StatusChanges.Inc()
	}
	log.Info().Str("id", id).Str("status", string(st)).Msg("bus status changed")

	out := []Outbound{{Scope: ToCaller, Event: EventSetStatusOK, Data: StatusAck{Status: st}}}
	out = append(out, e.fullSnapshot()...)
	if c.LastLocation != nil {
		out = append(out, Outbound{Scope: ToAll, Event: EventBusUpdated, Data: BusUpdate{Bus: snapshotOf(c)}})
	}
	return out
}

// RequestBuses replies to the caller with the current full snapshot under
// both event names, for clients listening to either.
func (e *Engine) RequestBuses(id string) []Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	buses := e.reg.Buses()
	return []Outbound{
		{Scope: ToCaller, Event: EventBusesList, Data: BusList{Buses: buses}},
		{Scope: ToCaller, Event: EventBusesUpdated, Data: BusList{Buses: buses}},
	}
}

// RegisteredNames replies with up to 200 distinct names ever logged.
func (e *Engine) RegisteredNames(ctx context.Context, id string) []Outbound {
	var names []string
	if e.names != nil {
		var err error
		names, err = e.names.Distinct(ctx, maxListedNames)
		if err != nil {
			log.Error().Err(err).Msg("name log read failed")
		}
	}
	if names == nil {
		names = []string{}
	}
	return []Outbound{{Scope: ToCaller, Event: EventRegisteredNames, Data: names}}
}

// Buses returns the current snapshot for the synchronous HTTP endpoint.
func (e *Engine) Buses() []BusSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Buses()
}

// fullSnapshot derives the authoritative list and emits it under both event
// names so every observer reconciles. Lock held by caller.
func (e *Engine) fullSnapshot() []Outbound {
	buses := e.reg.Buses()
	if e.metrics != nil {
		e.metrics.ActiveBuses.Set(float64(len(buses)))
	}
	return []Outbound{
		{Scope: ToAll, Event: EventBusesUpdated, Data: BusList{Buses: buses}},
		{Scope: ToAll, Event: EventBusesList, Data: BusList{Buses: buses}},
	}
}

// appendName writes through to the name log. Failures are an operator
// concern, never the registering bus's.
func (e *Engine) appendName(ctx context.Context, name string) {
	if e.names == nil {
		return
	}
	if err := e.names.Append(ctx, name); err != nil {
		if e.metrics != nil {
			e.metrics.NameLogWriteErrs.Inc()
		}
		log.Error().Err(err).Str("name", name).Msg("name log write failed")
	}
}

func (e *Engine) dropLocation(reason string) {
	if e.metrics != nil {
		e.metrics.LocationsDropped.WithLabelValues(reason).Inc()
	}
}
