package relay

// Role is the protocol role a connection has been granted.
type Role string

const (
	RoleUnassigned Role = ""
	RoleBus        Role = "bus"
	RoleCustomer   Role = "customer"
)

// Status is a bus's seat availability.
type Status string

const (
	StatusAvailable Status = "available"
	StatusFull      Status = "full"
)

// Inbound event names (client -> server).
const (
	EventRegisterRole   = "register-role"
	EventUnregisterRole = "unregister-role"
	EventSendLocation   = "send-location"
	EventSetBusStatus   = "set-bus-status"
	EventRequestBuses   = "request-buses"
	EventListNames      = "list-registered-names"
)

// Outbound event names (server -> client).
const (
	EventAssignName         = "assign-name"
	EventRegisterRoleOK     = "register-role-ok"
	EventRegisterRoleFailed = "register-role-failed"
	EventUnregisterRoleOK   = "unregister-role-ok"
	EventReceiveLocation    = "receive-location"
	EventBusesUpdated       = "buses-updated"
	EventBusesList          = "buses-list"
	EventBusUpdated         = "bus-updated"
	EventSetStatusOK        = "set-bus-status-ok"
	EventSetStatusFailed    = "set-bus-status-failed"
	EventUserDisconnected   = "user-disconnected"
	EventRegisteredNames    = "registered-names"
)

// Location is a validated position sample. Optional fields are kept only
// when the sender provided them as numbers.
type Location struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
}

// BusSnapshot is the outward-facing view of one bus with a known position.
// Derived from the registry on demand, never stored.
type BusSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Location
}

// BusList is the payload of the full-snapshot events.
type BusList struct {
	Buses []BusSnapshot `json:"buses"`
}

// BusUpdate is the payload of the single-entity bus-updated event.
type BusUpdate struct {
	Bus BusSnapshot `json:"bus"`
}

// RegisterAck is the payload of register-role-ok.
type RegisterAck struct {
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// UnregisterAck is the payload of unregister-role-ok.
type UnregisterAck struct {
	Name string `json:"name"`
}

// StatusAck is the payload of set-bus-status-ok.
type StatusAck struct {
	Status Status `json:"status"`
}

// RegisterPayload is the inbound register-role payload.
type RegisterPayload struct {
	Role   string `json:"role"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusPayload is the inbound set-bus-status payload.
type StatusPayload struct {
	Status string `json:"status"`
}

// RawLocation is the inbound send-location payload before coercion.
// Clients are known to send lat/lng as strings, so the fields stay untyped
// until the explicit parse step in the ingestion pipeline.
type RawLocation struct {
	Lat      any `json:"lat"`
	Lng      any `json:"lng"`
	Accuracy any `json:"accuracy"`
	Heading  any `json:"heading"`
	Speed    any `json:"speed"`
}

// Scope selects the recipients of an outbound message.
type Scope int

const (
	// ToCaller delivers to the connection that triggered the operation.
	ToCaller Scope = iota
	// ToOthers delivers to every connection except the caller.
	ToOthers
	// ToAll delivers to every connection including the caller.
	ToAll
)

// Outbound is one message the transport must deliver after an engine
// operation. Engine operations return these instead of sending directly so
// the pipelines stay testable without a live transport.
type Outbound struct {
	Scope Scope
	Event string
	Data  any
}
